package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/silabo/core/syllabus"
)

type commentRow struct {
	ID         string         `db:"id"`
	SyllabusID string         `db:"syllabus_id"`
	ParentID   sql.NullString `db:"parent_id"`
	AuthorID   string         `db:"author_id"`
	AuthorName string         `db:"author_name"`
	Body       string         `db:"body"`
	Resolved   bool           `db:"resolved"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r commentRow) comment() syllabus.Comment {
	return syllabus.Comment{
		ID:         r.ID,
		SyllabusID: r.SyllabusID,
		ParentID:   r.ParentID.String,
		AuthorID:   r.AuthorID,
		AuthorName: r.AuthorName,
		Body:       r.Body,
		Resolved:   r.Resolved,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) syllabus.CommentRepository {
	return &commentRepository{db: db}
}

func (repo *commentRepository) CreateComment(c syllabus.Comment) (syllabus.Comment, error) {
	q := `
		INSERT INTO comments (syllabus_id, parent_id, author_id, author_name, body, resolved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := repo.db.Get(
		&c.ID, q,
		c.SyllabusID, nullStr(c.ParentID), c.AuthorID, c.AuthorName,
		c.Body, c.Resolved, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return syllabus.Comment{}, errors.Wrap(err, "creating comment")
	}
	return c, nil
}

func (repo *commentRepository) GetCommentByID(id string) (syllabus.Comment, error) {
	var row commentRow
	err := repo.db.Get(&row, `SELECT * FROM comments WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return syllabus.Comment{}, syllabus.ErrCommentNotFound
	}
	if err != nil {
		return syllabus.Comment{}, errors.Wrap(err, "getting comment")
	}
	return row.comment(), nil
}

func (repo *commentRepository) QueryCommentsBySyllabusID(syllabusID string) ([]syllabus.Comment, error) {
	var rows []commentRow
	q := `SELECT * FROM comments WHERE syllabus_id = $1 ORDER BY created_at`
	if err := repo.db.Select(&rows, q, syllabusID); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}

	comments := make([]syllabus.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.comment())
	}
	return comments, nil
}

func (repo *commentRepository) UpdateComment(c syllabus.Comment) (syllabus.Comment, error) {
	q := `
		UPDATE comments
		SET body = $2, resolved = $3, updated_at = $4
		WHERE id = $1`
	res, err := repo.db.Exec(q, c.ID, c.Body, c.Resolved, c.UpdatedAt)
	if err != nil {
		return syllabus.Comment{}, errors.Wrap(err, "updating comment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return syllabus.Comment{}, syllabus.ErrCommentNotFound
	}
	return c, nil
}

func (repo *commentRepository) DeleteCommentsByID(ids ...string) error {
	// replies cascade via the parent_id foreign key
	if _, err := repo.db.Exec(`DELETE FROM comments WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting comments")
	}
	return nil
}
