package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/notification"
)

type notificationRepository struct {
	db core.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db core.DB) notification.Repository {
	return &notificationRepository{db: db}
}

type notificationRow struct {
	ID        string    `db:"id"`
	Recipient string    `db:"recipient"`
	Kind      string    `db:"kind"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	LinkURL   string    `db:"link_url"`
	ReadAt    null.Time `db:"read_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (row notificationRow) toNotification() notification.Notification {
	return notification.Notification(row)
}

func (repo *notificationRepository) queryRows(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]notification.Notification, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	var notifRows []notificationRow
	if err = sqlx.StructScan(rows, &notifRows); err != nil {
		return nil, errors.Wrap(err, "scanning notifications")
	}

	notifs := make([]notification.Notification, len(notifRows))
	for i, row := range notifRows {
		notifs[i] = row.toNotification()
	}
	return notifs, nil
}

const insertNotificationSQL = `
INSERT INTO notifications (id, recipient, kind, title, body, link_url, read_at, created_at)
VALUES (:id, :recipient, :kind, :title, :body, :link_url, :read_at, :created_at)`

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	q, args, err := named(insertNotificationSQL, notificationRow(n))
	if err != nil {
		return notification.Notification{}, err
	}
	if _, err = executor(repo.db, exec).ExecContext(ctx, q, args...); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (notification.Notification, error) {
	notifs, err := repo.queryRows(ctx, executor(repo.db, exec), rebind(`SELECT * FROM notifications WHERE id = ?`), id)
	if err != nil {
		return notification.Notification{}, err
	}
	if len(notifs) == 0 {
		return notification.Notification{}, notification.ErrNotFound
	}
	return notifs[0], nil
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter, exec ...core.DBExecutor) ([]notification.Notification, error) {
	q := `SELECT * FROM notifications WHERE recipient = ?`
	args := []interface{}{filter.Recipient}

	if filter.UnreadOnly {
		q += ` AND read_at IS NULL`
	}
	q += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return repo.queryRows(ctx, executor(repo.db, exec), rebind(q), args...)
}

const updateNotificationSQL = `
UPDATE notifications SET read_at = :read_at WHERE id = :id RETURNING *`

func (repo *notificationRepository) UpdateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	q, args, err := named(updateNotificationSQL, notificationRow(n))
	if err != nil {
		return notification.Notification{}, err
	}

	notifs, err := repo.queryRows(ctx, executor(repo.db, exec), q, args...)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "updating notification")
	}
	if len(notifs) == 0 {
		return notification.Notification{}, notification.ErrNotFound
	}
	return notifs[0], nil
}
