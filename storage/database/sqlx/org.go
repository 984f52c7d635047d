package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/org"
)

type orgRepository struct {
	db core.DB
}

var _ org.Repository = (*orgRepository)(nil) // interface compliance check

func NewOrgRepository(db core.DB) org.Repository {
	return &orgRepository{db: db}
}

type orgRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row orgRow) toOrg() org.Organization {
	return org.Organization(row)
}

type courseRow struct {
	ID        string      `db:"id"`
	OrgID     string      `db:"org_id"`
	Code      string      `db:"code"`
	Title     string      `db:"title"`
	Semester  null.String `db:"semester"`
	Year      null.Int    `db:"year"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (row courseRow) toCourse() org.Course {
	return org.Course(row)
}

type assignmentRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Title     string    `db:"title"`
	MaxPoints float64   `db:"max_points"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row assignmentRow) toAssignment() org.Assignment {
	return org.Assignment(row)
}

func (repo *orgRepository) queryOrgs(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]org.Organization, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying organizations")
	}
	var orgRows []orgRow
	if err = sqlx.StructScan(rows, &orgRows); err != nil {
		return nil, errors.Wrap(err, "scanning organizations")
	}

	orgs := make([]org.Organization, len(orgRows))
	for i, row := range orgRows {
		orgs[i] = row.toOrg()
	}
	return orgs, nil
}

func (repo *orgRepository) queryCourses(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]org.Course, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	var courseRows []courseRow
	if err = sqlx.StructScan(rows, &courseRows); err != nil {
		return nil, errors.Wrap(err, "scanning courses")
	}

	courses := make([]org.Course, len(courseRows))
	for i, row := range courseRows {
		courses[i] = row.toCourse()
	}
	return courses, nil
}

func (repo *orgRepository) QueryOrganizations(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]org.Organization, error) {
	q := `SELECT * FROM organizations`
	var args []interface{}

	if ids != nil {
		if len(ids) == 0 {
			return []org.Organization{}, nil
		}
		var err error
		if q, args, err = in(q+` WHERE id IN (?)`, ids); err != nil {
			return nil, err
		}
	}
	return repo.queryOrgs(ctx, executor(repo.db, exec), rebind(q+` ORDER BY name, id`), args...)
}

func (repo *orgRepository) GetOrganization(ctx context.Context, id string, exec ...core.DBExecutor) (org.Organization, error) {
	orgs, err := repo.queryOrgs(ctx, executor(repo.db, exec), rebind(`SELECT * FROM organizations WHERE id = ?`), id)
	if err != nil {
		return org.Organization{}, err
	}
	if len(orgs) == 0 {
		return org.Organization{}, org.ErrNotFound
	}
	return orgs[0], nil
}

func (repo *orgRepository) CreateOrganization(ctx context.Context, o org.Organization, exec ...core.DBExecutor) (org.Organization, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	q := rebind(`INSERT INTO organizations (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`)
	if _, err := executor(repo.db, exec).ExecContext(ctx, q, o.ID, o.Name, o.CreatedAt, o.UpdatedAt); err != nil {
		return org.Organization{}, errors.Wrap(err, "inserting organization")
	}
	return o, nil
}

func (repo *orgRepository) UpdateOrganization(ctx context.Context, o org.Organization, exec ...core.DBExecutor) (org.Organization, error) {
	q := rebind(`UPDATE organizations SET name = ?, updated_at = ? WHERE id = ?`)
	res, err := executor(repo.db, exec).ExecContext(ctx, q, o.Name, o.UpdatedAt, o.ID)
	if err != nil {
		return org.Organization{}, errors.Wrap(err, "updating organization")
	}
	if n, err := res.RowsAffected(); err != nil {
		return org.Organization{}, errors.Wrap(err, "updating organization")
	} else if n == 0 {
		return org.Organization{}, org.ErrNotFound
	}
	return o, nil
}

func (repo *orgRepository) QueryCourses(ctx context.Context, filter org.CourseFilter, exec ...core.DBExecutor) ([]org.Course, error) {
	q := `SELECT * FROM courses`
	var (
		args []interface{}
		err  error
	)

	switch {
	case len(filter.OrgIDs) > 0 && len(filter.IDs) > 0:
		q, args, err = in(q+` WHERE org_id IN (?) OR id IN (?)`, filter.OrgIDs, filter.IDs)
	case len(filter.OrgIDs) > 0:
		q, args, err = in(q+` WHERE org_id IN (?)`, filter.OrgIDs)
	case len(filter.IDs) > 0:
		q, args, err = in(q+` WHERE id IN (?)`, filter.IDs)
	}
	if err != nil {
		return nil, err
	}
	return repo.queryCourses(ctx, executor(repo.db, exec), rebind(q+` ORDER BY code, id`), args...)
}

func (repo *orgRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (org.Course, error) {
	courses, err := repo.queryCourses(ctx, executor(repo.db, exec), rebind(`SELECT * FROM courses WHERE id = ?`), id)
	if err != nil {
		return org.Course{}, err
	}
	if len(courses) == 0 {
		return org.Course{}, org.ErrCourseNotFound
	}
	return courses[0], nil
}

func (repo *orgRepository) CreateCourse(ctx context.Context, c org.Course, exec ...core.DBExecutor) (org.Course, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	q := rebind(`
INSERT INTO courses (id, org_id, code, title, semester, year, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := executor(repo.db, exec).ExecContext(ctx, q,
		c.ID, c.OrgID, c.Code, c.Title, c.Semester, c.Year, c.CreatedAt, c.UpdatedAt); err != nil {
		return org.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *orgRepository) GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (org.Assignment, error) {
	rows, err := executor(repo.db, exec).QueryContext(ctx, rebind(`SELECT * FROM assignments WHERE id = ?`), id)
	if err != nil {
		return org.Assignment{}, errors.Wrap(err, "querying assignments")
	}
	var assignmentRows []assignmentRow
	if err = sqlx.StructScan(rows, &assignmentRows); err != nil {
		return org.Assignment{}, errors.Wrap(err, "scanning assignments")
	}
	if len(assignmentRows) == 0 {
		return org.Assignment{}, org.ErrAssignmentNotFound
	}
	return assignmentRows[0].toAssignment(), nil
}

func (repo *orgRepository) CreateAssignment(ctx context.Context, a org.Assignment, exec ...core.DBExecutor) (org.Assignment, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	q := rebind(`
INSERT INTO assignments (id, course_id, title, max_points, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := executor(repo.db, exec).ExecContext(ctx, q,
		a.ID, a.CourseID, a.Title, a.MaxPoints, a.CreatedAt, a.UpdatedAt); err != nil {
		return org.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}
