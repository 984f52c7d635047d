package notification

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// Feed is the read side of the notification stream a Dispatcher polls.
// Service satisfies it.
type Feed interface {
	Query(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, recipient, id string) (Notification, error)
}

// Dispatcher keeps a recipient's notifications warm by polling the feed on a
// fixed interval. It permanently disables itself when the feed reports that
// the session is gone; a new Dispatcher is needed after re-authentication.
type Dispatcher struct {
	feed      Feed
	recipient string
	interval  time.Duration
	logger    core.Logger

	mu            sync.RWMutex
	notifications []Notification
	disabled      bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewDispatcher(feed Feed, recipient string, conf *core.Config, logger core.Logger) *Dispatcher {
	return &Dispatcher{
		feed:      feed,
		recipient: recipient,
		interval:  conf.Notification.PollInterval,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start polls until the context is cancelled, Stop is called or the
// dispatcher disables itself. It performs an initial refresh before the
// first tick.
func (d *Dispatcher) Start(ctx context.Context) {
	d.Refresh(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-ticker.C:
			if d.Disabled() {
				return
			}
			d.Refresh(ctx)
		}
	}
}

// Refresh polls the feed once, synchronously.
func (d *Dispatcher) Refresh(ctx context.Context) {
	if d.Disabled() {
		return
	}

	notifs, err := d.feed.Query(ctx, d.recipient, false, 0)
	if err != nil {
		if pkgerrors.Cause(err) == core.ErrUnauthenticated {
			d.mu.Lock()
			d.disabled = true
			d.mu.Unlock()
			d.logger.Warn("notification dispatcher disabled: session expired")
			return
		}
		d.logger.Error("polling notifications", err)
		return
	}

	d.mu.Lock()
	d.notifications = notifs
	d.mu.Unlock()
}

// Stop is safe to call more than once.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

func (d *Dispatcher) Disabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.disabled
}

// Notifications returns the last polled snapshot, newest first.
func (d *Dispatcher) Notifications() []Notification {
	d.mu.RLock()
	defer d.mu.RUnlock()
	notifs := make([]Notification, len(d.notifications))
	copy(notifs, d.notifications)
	return notifs
}

// Unread counts unread notifications in the snapshot; never negative.
func (d *Dispatcher) Unread() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var n int
	for _, notif := range d.notifications {
		if !notif.IsRead() {
			n++
		}
	}
	return n
}

// MarkRead marks a notification read through the feed, updates the local
// snapshot and returns the notification's link for navigation.
func (d *Dispatcher) MarkRead(ctx context.Context, id string) (string, error) {
	n, err := d.feed.MarkRead(ctx, d.recipient, id)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	for i := range d.notifications {
		if d.notifications[i].ID == n.ID {
			d.notifications[i] = n
			break
		}
	}
	d.mu.Unlock()

	return n.LinkURL, nil
}
