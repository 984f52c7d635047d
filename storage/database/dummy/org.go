package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/org"
)

type orgRepository struct {
	db *orgTable
}

var _ org.Repository = (*orgRepository)(nil) // interface compliance check

func NewOrgRepository(db *DB) org.Repository {
	return &orgRepository{db: db.org}
}

func (repo *orgRepository) QueryOrganizations(_ context.Context, ids []string, _ ...core.DBExecutor) ([]org.Organization, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	orgs := make([]org.Organization, 0, len(repo.db.orgs))
	for _, o := range repo.db.orgs {
		if ids == nil || wanted[o.ID] {
			orgs = append(orgs, *o)
		}
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].Name < orgs[j].Name })
	return orgs, nil
}

func (repo *orgRepository) GetOrganization(_ context.Context, id string, _ ...core.DBExecutor) (org.Organization, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if o, ok := repo.db.orgs[id]; ok {
		return *o, nil
	}
	return org.Organization{}, org.ErrNotFound
}

func (repo *orgRepository) CreateOrganization(_ context.Context, o org.Organization, _ ...core.DBExecutor) (org.Organization, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	repo.db.orgs[o.ID] = &o
	return o, nil
}

func (repo *orgRepository) UpdateOrganization(_ context.Context, o org.Organization, _ ...core.DBExecutor) (org.Organization, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.orgs[o.ID]; !ok {
		return org.Organization{}, org.ErrNotFound
	}
	repo.db.orgs[o.ID] = &o
	return o, nil
}

func (repo *orgRepository) QueryCourses(_ context.Context, filter org.CourseFilter, _ ...core.DBExecutor) ([]org.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wantedOrgs := make(map[string]bool, len(filter.OrgIDs))
	for _, id := range filter.OrgIDs {
		wantedOrgs[id] = true
	}
	wantedIDs := make(map[string]bool, len(filter.IDs))
	for _, id := range filter.IDs {
		wantedIDs[id] = true
	}
	all := len(filter.OrgIDs) == 0 && len(filter.IDs) == 0

	courses := make([]org.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if all || wantedOrgs[c.OrgID] || wantedIDs[c.ID] {
			courses = append(courses, *c)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (repo *orgRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (org.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return org.Course{}, org.ErrCourseNotFound
}

func (repo *orgRepository) CreateCourse(_ context.Context, c org.Course, _ ...core.DBExecutor) (org.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *orgRepository) GetAssignment(_ context.Context, id string, _ ...core.DBExecutor) (org.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return org.Assignment{}, org.ErrAssignmentNotFound
}

func (repo *orgRepository) CreateAssignment(_ context.Context, a org.Assignment, _ ...core.DBExecutor) (org.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	repo.db.assignments[a.ID] = &a
	return a, nil
}
