package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/silabo/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(n notification.Notification) (notification.Notification, error) {
	q := `
		INSERT INTO notifications (user_id, kind, message, ref_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.Get(&n.ID, q, n.UserID, string(n.Kind), n.Message, nullStr(n.RefID), n.Read, n.CreatedAt)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "creating notification")
	}
	return n, nil
}

func (repo *notificationRepository) GetNotificationByID(id string) (notification.Notification, error) {
	var n notification.Notification
	err := repo.db.QueryRow(`SELECT id, user_id, kind, message, COALESCE(ref_id, ''), read, created_at FROM notifications WHERE id = $1`, id).
		Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.RefID, &n.Read, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return notification.Notification{}, notification.ErrNotFound
	}
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "getting notification")
	}
	return n, nil
}

func (repo *notificationRepository) QueryNotificationsByUserID(userID string) ([]notification.Notification, error) {
	rows, err := repo.db.Query(
		`SELECT id, user_id, kind, message, COALESCE(ref_id, ''), read, created_at
		 FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	defer func() { _ = rows.Close() }()

	var notifs []notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.RefID, &n.Read, &n.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning notification")
		}
		notifs = append(notifs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return notifs, nil
}

func (repo *notificationRepository) UpdateNotification(n notification.Notification) (notification.Notification, error) {
	res, err := repo.db.Exec(`UPDATE notifications SET read = $2 WHERE id = $1`, n.ID, n.Read)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "updating notification")
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return notification.Notification{}, notification.ErrNotFound
	}
	return n, nil
}

func (repo *notificationRepository) DeleteNotificationsByID(ids ...string) error {
	if _, err := repo.db.Exec(`DELETE FROM notifications WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting notifications")
	}
	return nil
}
