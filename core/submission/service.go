package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/audit"
	"github.com/trezcool/darasa/core/org"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("submission not found")
	// ErrNoneRemaining signals the end of a next-ungraded traversal; the
	// queue is never scanned from the start again.
	ErrNoneRemaining = errors.New("no ungraded submissions remain")
)

const actionGradeOverride = "grade_override"

type (
	Repository interface {
		CreateSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
		GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (Submission, error)
		// QuerySubmissions returns matches in queue order: SubmittedAt then ID.
		QuerySubmissions(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Submission, error)
		UpdateSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
	}

	// Catalog resolves the course and assignment a submission belongs to.
	Catalog interface {
		GetCourse(ctx context.Context, id string) (org.Course, error)
		GetAssignment(ctx context.Context, id string) (org.Assignment, error)
	}

	// Notifier enqueues a notification for a user; delivery is external.
	Notifier interface {
		Notify(ctx context.Context, recipient, kind, title, body, linkURL string) error
	}

	Service interface {
		Create(ctx context.Context, student user.User, courseID string, ns NewSubmission) (Submission, error)
		GetByID(ctx context.Context, id string) (Submission, error)
		Query(ctx context.Context, filter QueryFilter) ([]Submission, error)
		// Override commits a manual grade: validates the score against the
		// assignment scale, transitions from any prior status to the chosen
		// terminal one and appends exactly one audit event; a transition into
		// graded additionally enqueues exactly one notification to the student.
		Override(ctx context.Context, actor user.User, id string, o Override) (Submission, error)
		// NextUngraded returns the next pending submission after afterID in
		// queue order; ErrNoneRemaining when the rest of the queue is clean.
		NextUngraded(ctx context.Context, courseID, afterID string) (Submission, error)
	}

	service struct {
		db       core.DB
		repo     Repository
		catalog  Catalog
		recorder audit.Recorder
		notifier Notifier
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, catalog Catalog, recorder audit.Recorder, notifier Notifier, conf *core.Config) Service {
	return &service{
		db:       db,
		repo:     repo,
		catalog:  catalog,
		recorder: recorder,
		notifier: notifier,
		conf:     conf,
	}
}

func (svc *service) Create(ctx context.Context, student user.User, courseID string, ns NewSubmission) (Submission, error) {
	asg, err := svc.catalog.GetAssignment(ctx, ns.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	if asg.CourseID != courseID {
		return Submission{}, org.ErrAssignmentNotFound
	}

	now := time.Now().UTC()
	s := Submission{
		CourseID:     courseID,
		AssignmentID: ns.AssignmentID,
		StudentID:    student.ID,
		Status:       StatusPending,
		FileName:     ns.FileName,
		FileSize:     ns.FileSize,
		SubmittedAt:  now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateSubmission(ctx, s)
}

func (svc *service) GetByID(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Submission, error) {
	filter.Clean()
	return svc.repo.QuerySubmissions(ctx, filter)
}

func (svc *service) Override(ctx context.Context, actor user.User, id string, o Override) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}

	asg, err := svc.catalog.GetAssignment(ctx, sub.AssignmentID)
	if err != nil {
		return Submission{}, pkgerrors.Wrap(err, "finding assignment")
	}

	// score range check; rejected before anything is written
	score := o.ParsedScore()
	if score.Valid && (score.Float64 < 0 || score.Float64 > asg.MaxPoints) {
		return Submission{}, core.NewValidationError(nil, core.FieldError{
			Field: "score",
			Error: fmt.Sprintf("score must be between 0 and %g", asg.MaxPoints),
		})
	}

	prevStatus := sub.Status
	sub.Status = o.Status
	sub.Score = score
	sub.Feedback = o.NormalizedFeedback()
	sub.UpdatedAt = time.Now().UTC()

	// last-write-wins: concurrent staff saves are not detected
	sub, err = svc.repo.UpdateSubmission(ctx, sub)
	if err != nil {
		return Submission{}, pkgerrors.Wrap(err, "updating submission")
	}

	course, err := svc.catalog.GetCourse(ctx, sub.CourseID)
	if err != nil {
		return Submission{}, pkgerrors.Wrap(err, "finding course")
	}

	meta := map[string]string{
		"prev_status": string(prevStatus),
		"status":      string(sub.Status),
	}
	if sub.Score.Valid {
		meta["score"] = fmt.Sprintf("%g", sub.Score.Float64)
	}
	if err = svc.recorder.Record(ctx, audit.Event{
		OrgID:      course.OrgID,
		Actor:      actor.Email,
		Action:     actionGradeOverride,
		TargetType: "submission",
		TargetID:   sub.ID,
		Metadata:   meta,
	}); err != nil {
		return Submission{}, pkgerrors.Wrap(err, "recording audit event")
	}

	if sub.Status == StatusGraded {
		title := fmt.Sprintf("%s: submission graded", asg.Title)
		body := "Your submission has been graded."
		if sub.Score.Valid {
			body = fmt.Sprintf("Your submission has been graded: %g/%g.", sub.Score.Float64, asg.MaxPoints)
		}
		linkURL := user.SectionDashboard + "/submissions/" + sub.ID
		if err = svc.notifier.Notify(ctx, sub.StudentID, "submission_graded", title, body, linkURL); err != nil {
			return Submission{}, pkgerrors.Wrap(err, "enqueuing notification")
		}
	}

	return sub, nil
}

func (svc *service) NextUngraded(ctx context.Context, courseID, afterID string) (Submission, error) {
	subs, err := svc.repo.QuerySubmissions(ctx, QueryFilter{CourseID: courseID})
	if err != nil {
		return Submission{}, err
	}

	idx := -1
	for i, s := range subs {
		if s.ID == afterID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Submission{}, ErrNotFound
	}

	for _, s := range subs[idx+1:] {
		if s.Status == StatusPending {
			return s, nil
		}
	}
	return Submission{}, ErrNoneRemaining
}
