package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event, exec ...core.DBExecutor) (Event, error)
		// QueryEvents returns one organization's events, newest first.
		QueryEvents(ctx context.Context, orgID string, offset, limit int, exec ...core.DBExecutor) ([]Event, error)
	}

	// Recorder is the write side of the log, consumed by state-changing
	// services; readers never go through it.
	Recorder interface {
		Record(ctx context.Context, e Event) error
	}

	Service interface {
		Recorder
		// Query is scoped to a single organization; results are filtered
		// locally by Event.Match.
		Query(ctx context.Context, orgID string, filter QueryFilter) ([]Event, error)
	}

	service struct {
		db   core.DB
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository) Service {
	return &service{
		db:   db,
		repo: repo,
	}
}

func (svc *service) Record(ctx context.Context, e Event) error {
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC()
	_, err := svc.repo.CreateEvent(ctx, e)
	return err
}

func (svc *service) Query(ctx context.Context, orgID string, filter QueryFilter) ([]Event, error) {
	filter.Clean()

	events, err := svc.repo.QueryEvents(ctx, orgID, filter.Offset, filter.Limit)
	if err != nil {
		return nil, err
	}
	if filter.Search == "" {
		return events, nil
	}

	filtered := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Match(filter.Search) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}
