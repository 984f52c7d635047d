package notification

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (Notification, error)
		// QueryNotifications returns a recipient's notifications, newest first.
		QueryNotifications(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Notification, error)
		UpdateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
	}

	Service interface {
		// Notify enqueues a notification and mirrors it to the recipient's
		// mailbox through the email service.
		Notify(ctx context.Context, recipient, kind, title, body, linkURL string) error
		Query(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]Notification, error)
		// MarkRead is idempotent: re-marking a read notification returns it
		// unchanged. Recipients can only mark their own notifications.
		MarkRead(ctx context.Context, recipient, id string) (Notification, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		usrSvc  user.Service
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, usrSvc user.Service, mailSvc core.EmailService, logger core.Logger, conf *core.Config) Service {
	return &service{
		db:      db,
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

func (svc *service) Notify(ctx context.Context, recipient, kind, title, body, linkURL string) error {
	n := Notification{
		Recipient: recipient,
		Kind:      kind,
		Title:     title,
		Body:      body,
		LinkURL:   linkURL,
		CreatedAt: time.Now().UTC(),
	}
	n, err := svc.repo.CreateNotification(ctx, n)
	if err != nil {
		return err
	}

	// the email mirror is best-effort; the feed entry is already committed
	usr, err := svc.usrSvc.GetByID(ctx, recipient)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("notification %s: skipping email mirror: %v", n.ID, err))
		return nil
	}
	if usr.Email != "" {
		svc.mailSvc.SendMessages(
			&core.EmailMessage{
				To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
				Subject: n.Title,
				BodyStr: n.Body,
			},
		)
	}
	return nil
}

func (svc *service) Query(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, QueryFilter{
		Recipient:  recipient,
		UnreadOnly: unreadOnly,
		Limit:      limit,
	})
}

func (svc *service) MarkRead(ctx context.Context, recipient, id string) (Notification, error) {
	n, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.Recipient != recipient {
		return Notification{}, ErrNotFound
	}
	if n.IsRead() {
		return n, nil
	}

	n.ReadAt = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateNotification(ctx, n)
}
