package audit

import (
	"strings"
	"time"

	"github.com/trezcool/darasa/core"
)

// Event is one entry of the append-only audit log. Events are produced as
// side effects of state-changing operations and never mutated or deleted.
type Event struct {
	ID         string            `json:"id"`
	OrgID      string            `json:"org_id"`
	Actor      string            `json:"actor"`
	Action     string            `json:"action"`
	TargetType string            `json:"target_type"`
	TargetID   string            `json:"target_id"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"` // UTC
}

// Match reports whether the event matches a case-insensitive substring
// search across action, actor, target type and target id.
func (e Event) Match(search string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, fld := range []string{e.Action, e.Actor, e.TargetType, e.TargetID} {
		if strings.Contains(strings.ToLower(fld), search) {
			return true
		}
	}
	return false
}

const defaultQueryLimit = 50

// QueryFilter pages through one organization's events; Search filters the
// fetched page locally.
type QueryFilter struct {
	Search string `query:"search"`
	Offset int    `query:"offset"`
	Limit  int    `query:"limit"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	if qf.Offset < 0 {
		qf.Offset = 0
	}
	if qf.Limit <= 0 {
		qf.Limit = defaultQueryLimit
	}
}
