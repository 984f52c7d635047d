package dummydb

import (
	"context"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEvent(_ context.Context, e audit.Event, _ ...core.DBExecutor) (audit.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table = append(repo.db.table, e)
	return e, nil
}

func (repo *auditRepository) QueryEvents(_ context.Context, orgID string, offset, limit int, _ ...core.DBExecutor) ([]audit.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	// newest first; the table is append-only
	events := make([]audit.Event, 0, len(repo.db.table))
	for i := len(repo.db.table) - 1; i >= 0; i-- {
		if e := repo.db.table[i]; e.OrgID == orgID {
			events = append(events, e)
		}
	}
	if offset >= len(events) {
		return []audit.Event{}, nil
	}
	events = events[offset:]
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
