package submission_test

import (
	"context"
	"testing"
	"time"

	enlocale "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/audit"
	"github.com/trezcool/darasa/core/org"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

type notifyCall struct {
	recipient, kind, title, body, linkURL string
}

type notifierMock struct {
	calls []notifyCall
}

var _ submission.Notifier = (*notifierMock)(nil)

func (n *notifierMock) Notify(_ context.Context, recipient, kind, title, body, linkURL string) error {
	n.calls = append(n.calls, notifyCall{recipient, kind, title, body, linkURL})
	return nil
}

type testEnv struct {
	svc       submission.Service
	subRepo   submission.Repository
	orgRepo   org.Repository
	auditRepo audit.Repository
	notifier  *notifierMock
	validate  *validator.Validate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	conf := testutil.NewConfig()

	orgRepo := dummydb.NewOrgRepository(db)
	auditRepo := dummydb.NewAuditRepository(db)
	subRepo := dummydb.NewSubmissionRepository(db)
	notifier := &notifierMock{}

	en := enlocale.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, trans)
	submission.InitValidators(validate, trans)

	return &testEnv{
		svc: submission.NewService(
			nil,
			subRepo,
			org.NewService(nil, orgRepo, conf),
			audit.NewService(nil, auditRepo),
			notifier,
			conf,
		),
		subRepo:   subRepo,
		orgRepo:   orgRepo,
		auditRepo: auditRepo,
		notifier:  notifier,
		validate:  validate,
	}
}

func (env *testEnv) override(status submission.Status, score, feedback string) submission.Override {
	o := submission.Override{Status: status, Score: score, Feedback: feedback}
	if err := o.Validate(env.validate); err != nil {
		panic(err)
	}
	return o
}

func TestService_Override(t *testing.T) {
	ctx := context.Background()
	grader := user.User{ID: "grader-id", Email: "grader@darasa.test"}

	t.Run("transitions from any prior status", func(t *testing.T) {
		for _, prev := range submission.AllStatuses {
			t.Run(string(prev), func(t *testing.T) {
				env := newTestEnv(t)
				o := testutil.CreateOrg(t, env.orgRepo, "Test Org")
				c := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")
				a := testutil.CreateAssignment(t, env.orgRepo, c.ID, "HW1", 20)
				sub := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "student-id", prev)

				got, err := env.svc.Override(ctx, grader, sub.ID, env.override(submission.StatusGraded, "15", "good work"))
				if err != nil {
					t.Fatalf("Override() failed: %v", err)
				}
				if got.Status != submission.StatusGraded {
					t.Errorf("Status = %v, want %v", got.Status, submission.StatusGraded)
				}
				if !got.Score.Valid || got.Score.Float64 != 15 {
					t.Errorf("Score = %v, want 15", got.Score)
				}
				if !got.Feedback.Valid || got.Feedback.String != "good work" {
					t.Errorf("Feedback = %v, want %q", got.Feedback, "good work")
				}
			})
		}
	})

	t.Run("non-terminal target status is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		for _, status := range []submission.Status{submission.StatusPending, submission.StatusGrading} {
			o := submission.Override{Status: status, Score: "10"}
			err := o.Validate(env.validate)
			if _, ok := err.(*core.ValidationError); !ok {
				t.Errorf("%s: Validate() error = %T, want *core.ValidationError", status, err)
			}
		}
	})

	t.Run("score above assignment scale is rejected before commit", func(t *testing.T) {
		env := newTestEnv(t)
		o := testutil.CreateOrg(t, env.orgRepo, "Test Org")
		c := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")
		a := testutil.CreateAssignment(t, env.orgRepo, c.ID, "HW1", 20)
		sub := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "student-id", submission.StatusPending)

		_, err := env.svc.Override(ctx, grader, sub.ID, env.override(submission.StatusGraded, "25", ""))
		if err == nil {
			t.Fatal("Override() expected an error")
		}
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("Override() error = %T, want *core.ValidationError", err)
		}

		// nothing was written
		unchanged, err := env.svc.GetByID(ctx, sub.ID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if unchanged.Status != submission.StatusPending {
			t.Errorf("Status = %v, want %v", unchanged.Status, submission.StatusPending)
		}
		if len(env.notifier.calls) != 0 {
			t.Errorf("notifications sent = %d, want 0", len(env.notifier.calls))
		}
	})

	t.Run("negative score is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		o := testutil.CreateOrg(t, env.orgRepo, "Test Org")
		c := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")
		a := testutil.CreateAssignment(t, env.orgRepo, c.ID, "HW1", 20)
		sub := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "student-id", submission.StatusPending)

		if _, err := env.svc.Override(ctx, grader, sub.ID, env.override(submission.StatusGraded, "-1", "")); err == nil {
			t.Error("Override() expected an error")
		}
	})

	t.Run("empty feedback is stored as null", func(t *testing.T) {
		env := newTestEnv(t)
		o := testutil.CreateOrg(t, env.orgRepo, "Test Org")
		c := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")
		a := testutil.CreateAssignment(t, env.orgRepo, c.ID, "HW1", 20)
		sub := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "student-id", submission.StatusPending)

		got, err := env.svc.Override(ctx, grader, sub.ID, env.override(submission.StatusError, "", ""))
		if err != nil {
			t.Fatalf("Override() failed: %v", err)
		}
		if got.Feedback.Valid {
			t.Errorf("Feedback = %v, want null", got.Feedback)
		}
		if got.Score.Valid {
			t.Errorf("Score = %v, want null", got.Score)
		}
	})

	t.Run("appends exactly one audit event", func(t *testing.T) {
		env := newTestEnv(t)
		o := testutil.CreateOrg(t, env.orgRepo, "Test Org")
		c := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")
		a := testutil.CreateAssignment(t, env.orgRepo, c.ID, "HW1", 20)
		sub := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "student-id", submission.StatusGrading)

		if _, err := env.svc.Override(ctx, grader, sub.ID, env.override(submission.StatusGraded, "18", "")); err != nil {
			t.Fatalf("Override() failed: %v", err)
		}

		events, err := env.auditRepo.QueryEvents(ctx, o.ID, 0, 0)
		if err != nil {
			t.Fatalf("QueryEvents() failed: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("events = %d, want 1", len(events))
		}
		e := events[0]
		if e.Action != "grade_override" {
			t.Errorf("Action = %q, want %q", e.Action, "grade_override")
		}
		if e.Actor != grader.Email {
			t.Errorf("Actor = %q, want %q", e.Actor, grader.Email)
		}
		if e.TargetID != sub.ID {
			t.Errorf("TargetID = %q, want %q", e.TargetID, sub.ID)
		}
		if e.Metadata["prev_status"] != "grading" || e.Metadata["status"] != "graded" || e.Metadata["score"] != "18" {
			t.Errorf("Metadata = %v", e.Metadata)
		}
	})

	t.Run("graded transition notifies the student exactly once", func(t *testing.T) {
		env := newTestEnv(t)
		o := testutil.CreateOrg(t, env.orgRepo, "Test Org")
		c := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")
		a := testutil.CreateAssignment(t, env.orgRepo, c.ID, "HW1", 20)
		sub := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "student-id", submission.StatusPending)

		if _, err := env.svc.Override(ctx, grader, sub.ID, env.override(submission.StatusGraded, "12.5", "")); err != nil {
			t.Fatalf("Override() failed: %v", err)
		}

		if len(env.notifier.calls) != 1 {
			t.Fatalf("notifications sent = %d, want 1", len(env.notifier.calls))
		}
		call := env.notifier.calls[0]
		if call.recipient != "student-id" {
			t.Errorf("recipient = %q, want %q", call.recipient, "student-id")
		}
		if call.kind != "submission_graded" {
			t.Errorf("kind = %q, want %q", call.kind, "submission_graded")
		}
		if want := user.SectionDashboard + "/submissions/" + sub.ID; call.linkURL != want {
			t.Errorf("linkURL = %q, want %q", call.linkURL, want)
		}
	})

	t.Run("non-graded transition does not notify", func(t *testing.T) {
		env := newTestEnv(t)
		o := testutil.CreateOrg(t, env.orgRepo, "Test Org")
		c := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")
		a := testutil.CreateAssignment(t, env.orgRepo, c.ID, "HW1", 20)
		sub := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "student-id", submission.StatusPending)

		if _, err := env.svc.Override(ctx, grader, sub.ID, env.override(submission.StatusError, "", "resubmit please")); err != nil {
			t.Fatalf("Override() failed: %v", err)
		}
		if len(env.notifier.calls) != 0 {
			t.Errorf("notifications sent = %d, want 0", len(env.notifier.calls))
		}
	})

	t.Run("unknown submission", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.svc.Override(ctx, grader, "nope", env.override(submission.StatusGraded, "1", "")); err != submission.ErrNotFound {
			t.Errorf("Override() error = %v, want %v", err, submission.ErrNotFound)
		}
	})
}

func TestService_NextUngraded(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	o := testutil.CreateOrg(t, env.orgRepo, "Test Org")
	c := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")
	a := testutil.CreateAssignment(t, env.orgRepo, c.ID, "HW1", 20)

	base := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "s1", submission.StatusPending).SubmittedAt
	subA := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "s2", submission.StatusGraded, base.Add(time.Second))
	subB := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "s3", submission.StatusPending, base.Add(2*time.Second))
	subC := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "s4", submission.StatusGraded, base.Add(3*time.Second))

	t.Run("skips graded submissions", func(t *testing.T) {
		got, err := env.svc.NextUngraded(ctx, c.ID, subA.ID)
		if err != nil {
			t.Fatalf("NextUngraded() failed: %v", err)
		}
		if got.ID != subB.ID {
			t.Errorf("NextUngraded() = %v, want %v", got.ID, subB.ID)
		}
	})

	t.Run("never scans backwards", func(t *testing.T) {
		if _, err := env.svc.NextUngraded(ctx, c.ID, subC.ID); err != submission.ErrNoneRemaining {
			t.Errorf("NextUngraded() error = %v, want %v", err, submission.ErrNoneRemaining)
		}
	})

	t.Run("unknown cursor", func(t *testing.T) {
		if _, err := env.svc.NextUngraded(ctx, c.ID, "nope"); err != submission.ErrNotFound {
			t.Errorf("NextUngraded() error = %v, want %v", err, submission.ErrNotFound)
		}
	})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	o := testutil.CreateOrg(t, env.orgRepo, "Test Org")
	c1 := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")
	c2 := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS201", "Advanced")
	a := testutil.CreateAssignment(t, env.orgRepo, c1.ID, "HW1", 20)
	student := user.User{ID: "student-id"}

	t.Run("lands in pending", func(t *testing.T) {
		sub, err := env.svc.Create(ctx, student, c1.ID, submission.NewSubmission{
			AssignmentID: a.ID,
			FileName:     "solution.zip",
			FileSize:     2048,
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if sub.Status != submission.StatusPending {
			t.Errorf("Status = %v, want %v", sub.Status, submission.StatusPending)
		}
		if sub.StudentID != student.ID {
			t.Errorf("StudentID = %q, want %q", sub.StudentID, student.ID)
		}
	})

	t.Run("assignment must belong to the course", func(t *testing.T) {
		_, err := env.svc.Create(ctx, student, c2.ID, submission.NewSubmission{
			AssignmentID: a.ID,
			FileName:     "solution.zip",
		})
		if err != org.ErrAssignmentNotFound {
			t.Errorf("Create() error = %v, want %v", err, org.ErrAssignmentNotFound)
		}
	})
}
