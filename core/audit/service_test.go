package audit_test

import (
	"context"
	"testing"

	"github.com/trezcool/darasa/core/audit"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

func newTestService(t *testing.T) audit.Service {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	return audit.NewService(nil, dummydb.NewAuditRepository(db))
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	record := func(orgID, actor, action, targetType, targetID string) {
		t.Helper()
		if err := svc.Record(ctx, audit.Event{
			OrgID:      orgID,
			Actor:      actor,
			Action:     action,
			TargetType: targetType,
			TargetID:   targetID,
		}); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	record("org-1", "admin@darasa.test", "invite_sent", "user", "u1")
	record("org-1", "grader@darasa.test", "grade_override", "submission", "s1")
	record("org-2", "other@darasa.test", "grade_override", "submission", "s2")

	t.Run("newest first", func(t *testing.T) {
		events, err := svc.Query(ctx, "org-1", audit.QueryFilter{})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("events = %d, want 2", len(events))
		}
		if events[0].Action != "grade_override" || events[1].Action != "invite_sent" {
			t.Errorf("unexpected order: %v, %v", events[0].Action, events[1].Action)
		}
	})

	t.Run("scoped to one organization", func(t *testing.T) {
		events, err := svc.Query(ctx, "org-2", audit.QueryFilter{})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(events) != 1 || events[0].TargetID != "s2" {
			t.Errorf("events = %v", events)
		}
	})

	t.Run("search filters the fetched page", func(t *testing.T) {
		events, err := svc.Query(ctx, "org-1", audit.QueryFilter{Search: "override"})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("events = %d, want 1", len(events))
		}
		if events[0].Action != "grade_override" {
			t.Errorf("Action = %q", events[0].Action)
		}
	})

	t.Run("search is case-insensitive and matches the actor", func(t *testing.T) {
		events, err := svc.Query(ctx, "org-1", audit.QueryFilter{Search: "GRADER@"})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(events) != 1 {
			t.Errorf("events = %d, want 1", len(events))
		}
	})

	t.Run("no match", func(t *testing.T) {
		events, err := svc.Query(ctx, "org-1", audit.QueryFilter{Search: "nothing-here"})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("events = %d, want 0", len(events))
		}
	})
}

func TestEvent_Match(t *testing.T) {
	e := audit.Event{
		Actor:      "grader@darasa.test",
		Action:     "grade_override",
		TargetType: "submission",
		TargetID:   "abc-123",
	}
	tests := []struct {
		search string
		want   bool
	}{
		{search: "", want: true},
		{search: "override", want: true},
		{search: "OVERRIDE", want: true},
		{search: "grader", want: true},
		{search: "submission", want: true},
		{search: "abc-123", want: true},
		{search: "zzz", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			if got := e.Match(tt.search); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.search, got, tt.want)
			}
		})
	}
}
