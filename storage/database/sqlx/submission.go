package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/submission"
)

type submissionRepository struct {
	db core.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db core.DB) submission.Repository {
	return &submissionRepository{db: db}
}

type submissionRow struct {
	ID           string            `db:"id"`
	CourseID     string            `db:"course_id"`
	AssignmentID string            `db:"assignment_id"`
	StudentID    string            `db:"student_id"`
	Status       submission.Status `db:"status"`
	Score        null.Float64      `db:"score"`
	Feedback     null.String       `db:"feedback"`
	FileName     string            `db:"file_name"`
	FileSize     int64             `db:"file_size"`
	SubmittedAt  time.Time         `db:"submitted_at"`
	UpdatedAt    time.Time         `db:"updated_at"`
}

func (row submissionRow) toSubmission() submission.Submission {
	return submission.Submission(row)
}

func (repo *submissionRepository) queryRows(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]submission.Submission, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	var subRows []submissionRow
	if err = sqlx.StructScan(rows, &subRows); err != nil {
		return nil, errors.Wrap(err, "scanning submissions")
	}

	subs := make([]submission.Submission, len(subRows))
	for i, row := range subRows {
		subs[i] = row.toSubmission()
	}
	return subs, nil
}

const insertSubmissionSQL = `
INSERT INTO submissions (id, course_id, assignment_id, student_id, status, score, feedback, file_name, file_size, submitted_at, updated_at)
VALUES (:id, :course_id, :assignment_id, :student_id, :status, :score, :feedback, :file_name, :file_size, :submitted_at, :updated_at)`

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission, exec ...core.DBExecutor) (submission.Submission, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	q, args, err := named(insertSubmissionSQL, submissionRow(s))
	if err != nil {
		return submission.Submission{}, err
	}
	if _, err = executor(repo.db, exec).ExecContext(ctx, q, args...); err != nil {
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (submission.Submission, error) {
	subs, err := repo.queryRows(ctx, executor(repo.db, exec), rebind(`SELECT * FROM submissions WHERE id = ?`), id)
	if err != nil {
		return submission.Submission{}, err
	}
	if len(subs) == 0 {
		return submission.Submission{}, submission.ErrNotFound
	}
	return subs[0], nil
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, filter submission.QueryFilter, exec ...core.DBExecutor) ([]submission.Submission, error) {
	q := `SELECT * FROM submissions`
	var (
		where []string
		args  []interface{}
	)

	if filter.CourseID != "" {
		where = append(where, `course_id = ?`)
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, filter.Status)
	}
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}

	// queue order
	q += ` ORDER BY submitted_at, id`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return repo.queryRows(ctx, executor(repo.db, exec), rebind(q), args...)
}

const updateSubmissionSQL = `
UPDATE submissions
SET status = :status, score = :score, feedback = :feedback, updated_at = :updated_at
WHERE id = :id
RETURNING *`

func (repo *submissionRepository) UpdateSubmission(ctx context.Context, s submission.Submission, exec ...core.DBExecutor) (submission.Submission, error) {
	q, args, err := named(updateSubmissionSQL, submissionRow(s))
	if err != nil {
		return submission.Submission{}, err
	}

	subs, err := repo.queryRows(ctx, executor(repo.db, exec), q, args...)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "updating submission")
	}
	if len(subs) == 0 {
		return submission.Submission{}, submission.ErrNotFound
	}
	return subs[0], nil
}
