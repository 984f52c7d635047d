package sqlxrepos

import (
	"context"
	"database/sql/driver"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/audit"
)

type auditRepository struct {
	db core.DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db core.DB) audit.Repository {
	return &auditRepository{db: db}
}

// metadataColumn stores an event's metadata as JSONB.
type metadataColumn map[string]string

func (m metadataColumn) Value() (driver.Value, error) {
	if m == nil {
		m = metadataColumn{}
	}
	return jsonValue(m)
}

func (m *metadataColumn) Scan(src interface{}) error {
	return jsonScan(src, m)
}

type auditRow struct {
	ID         string         `db:"id"`
	OrgID      string         `db:"org_id"`
	Actor      string         `db:"actor"`
	Action     string         `db:"action"`
	TargetType string         `db:"target_type"`
	TargetID   string         `db:"target_id"`
	Metadata   metadataColumn `db:"metadata"`
	CreatedAt  time.Time      `db:"created_at"`
}

func newAuditRow(e audit.Event) auditRow {
	return auditRow{
		ID:         e.ID,
		OrgID:      e.OrgID,
		Actor:      e.Actor,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Metadata:   e.Metadata,
		CreatedAt:  e.CreatedAt,
	}
}

func (row auditRow) toEvent() audit.Event {
	return audit.Event{
		ID:         row.ID,
		OrgID:      row.OrgID,
		Actor:      row.Actor,
		Action:     row.Action,
		TargetType: row.TargetType,
		TargetID:   row.TargetID,
		Metadata:   row.Metadata,
		CreatedAt:  row.CreatedAt,
	}
}

const insertEventSQL = `
INSERT INTO audit_events (id, org_id, actor, action, target_type, target_id, metadata, created_at)
VALUES (:id, :org_id, :actor, :action, :target_type, :target_id, :metadata, :created_at)`

func (repo *auditRepository) CreateEvent(ctx context.Context, e audit.Event, exec ...core.DBExecutor) (audit.Event, error) {
	q, args, err := named(insertEventSQL, newAuditRow(e))
	if err != nil {
		return audit.Event{}, err
	}
	if _, err = executor(repo.db, exec).ExecContext(ctx, q, args...); err != nil {
		return audit.Event{}, errors.Wrap(err, "inserting audit event")
	}
	return e, nil
}

func (repo *auditRepository) QueryEvents(ctx context.Context, orgID string, offset, limit int, exec ...core.DBExecutor) ([]audit.Event, error) {
	q := `SELECT * FROM audit_events WHERE org_id = ? ORDER BY created_at DESC, id DESC`
	args := []interface{}{orgID}

	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	if offset > 0 {
		q += ` OFFSET ?`
		args = append(args, offset)
	}

	rows, err := executor(repo.db, exec).QueryContext(ctx, rebind(q), args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying audit events")
	}
	var eventRows []auditRow
	if err = sqlx.StructScan(rows, &eventRows); err != nil {
		return nil, errors.Wrap(err, "scanning audit events")
	}

	events := make([]audit.Event, len(eventRows))
	for i, row := range eventRows {
		events[i] = row.toEvent()
	}
	return events, nil
}
