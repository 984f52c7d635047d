package org

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("organization not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
)

type (
	Repository interface {
		QueryOrganizations(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Organization, error)
		GetOrganization(ctx context.Context, id string, exec ...core.DBExecutor) (Organization, error)
		CreateOrganization(ctx context.Context, o Organization, exec ...core.DBExecutor) (Organization, error)
		UpdateOrganization(ctx context.Context, o Organization, exec ...core.DBExecutor) (Organization, error)
		QueryCourses(ctx context.Context, filter CourseFilter, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (Assignment, error)
		CreateAssignment(ctx context.Context, a Assignment, exec ...core.DBExecutor) (Assignment, error)
	}

	// CourseFilter selects courses; zero value selects all.
	// OrgIDs and IDs are OR'ed together.
	CourseFilter struct {
		OrgIDs []string
		IDs    []string
	}

	Service interface {
		// QueryForAdmin returns all organizations for a superadmin and the
		// administered ones for an org admin.
		QueryForAdmin(ctx context.Context, usr user.User) ([]Organization, error)
		Get(ctx context.Context, id string) (Organization, error)
		Update(ctx context.Context, id string, uo UpdateOrganization) (Organization, error)
		// CoursesForStaff returns the course inventory visible to the user:
		// everything for a superadmin, the org's courses for an org admin,
		// and the courses the user staffs otherwise.
		CoursesForStaff(ctx context.Context, usr user.User) ([]Course, error)
		CoursesByOrg(ctx context.Context, orgID string) ([]Course, error)
		CreateCourse(ctx context.Context, orgID string, nc NewCourse) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
	}

	service struct {
		db   core.DB
		repo Repository
		conf *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, conf *core.Config) Service {
	return &service{
		db:   db,
		repo: repo,
		conf: conf,
	}
}

func (svc *service) QueryForAdmin(ctx context.Context, usr user.User) ([]Organization, error) {
	if usr.IsSuperadmin {
		return svc.repo.QueryOrganizations(ctx, nil)
	}
	if len(usr.OrgAdminOf) == 0 {
		return []Organization{}, nil
	}
	return svc.repo.QueryOrganizations(ctx, usr.OrgAdminOf)
}

func (svc *service) Get(ctx context.Context, id string) (Organization, error) {
	return svc.repo.GetOrganization(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, uo UpdateOrganization) (Organization, error) {
	o, err := svc.repo.GetOrganization(ctx, id)
	if err != nil {
		return Organization{}, err
	}
	o.Name = uo.Name
	o.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateOrganization(ctx, o)
}

func (svc *service) CoursesForStaff(ctx context.Context, usr user.User) ([]Course, error) {
	if usr.IsSuperadmin {
		return svc.repo.QueryCourses(ctx, CourseFilter{})
	}

	filter := CourseFilter{OrgIDs: usr.OrgAdminOf}
	for _, m := range usr.CourseRoles {
		if m.Role.IsStaff() {
			filter.IDs = append(filter.IDs, m.CourseID)
		}
	}
	if len(filter.OrgIDs) == 0 && len(filter.IDs) == 0 {
		return []Course{}, nil
	}
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *service) CoursesByOrg(ctx context.Context, orgID string) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, CourseFilter{OrgIDs: []string{orgID}})
}

func (svc *service) CreateCourse(ctx context.Context, orgID string, nc NewCourse) (Course, error) {
	if _, err := svc.repo.GetOrganization(ctx, orgID); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	c := Course{
		OrgID:     orgID,
		Code:      nc.Code,
		Title:     nc.Title,
		Semester:  null.NewString(nc.Semester, nc.Semester != ""),
		Year:      null.NewInt(nc.Year, nc.Year != 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}
