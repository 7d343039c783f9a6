package notification

import (
	"errors"
	"time"

	"github.com/trezcool/silabo/core"
)

var ErrNotFound = errors.New("notification not found")

type (
	Repository interface {
		CreateNotification(n Notification) (Notification, error)
		GetNotificationByID(id string) (Notification, error)
		// QueryNotificationsByUserID returns the user's notifications,
		// newest first.
		QueryNotificationsByUserID(userID string) ([]Notification, error)
		UpdateNotification(n Notification) (Notification, error)
		DeleteNotificationsByID(ids ...string) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) Notify(userID string, kind Kind, message, refID string) (Notification, error) {
	n := Notification{
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		RefID:     refID,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateNotification(n)
}

// NotifyAll fans a notice out to several users. Individual failures are
// logged and skipped; notifying is best effort.
func (svc *Service) NotifyAll(userIDs []string, kind Kind, message, refID string) {
	for _, uid := range userIDs {
		if _, err := svc.Notify(uid, kind, message, refID); err != nil && svc.logger != nil {
			svc.logger.Error("creating notification", err)
		}
	}
}

func (svc *Service) ListByUser(userID string) ([]Notification, error) {
	return svc.repo.QueryNotificationsByUserID(userID)
}

func (svc *Service) GetByID(id string) (Notification, error) {
	return svc.repo.GetNotificationByID(id)
}

func (svc *Service) MarkRead(id string, read bool) (Notification, error) {
	n, err := svc.repo.GetNotificationByID(id)
	if err != nil {
		return Notification{}, err
	}
	n.Read = read
	return svc.repo.UpdateNotification(n)
}

func (svc *Service) MarkAllRead(userID string) error {
	notifs, err := svc.repo.QueryNotificationsByUserID(userID)
	if err != nil {
		return err
	}
	for _, n := range notifs {
		if n.Read {
			continue
		}
		n.Read = true
		if _, err := svc.repo.UpdateNotification(n); err != nil {
			return err
		}
	}
	return nil
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteNotificationsByID(ids...)
}
