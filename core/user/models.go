package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
)

// CourseRole is the closed set of per-course roles.
type CourseRole string

const (
	RoleOwner      CourseRole = "owner"
	RoleCoLecturer CourseRole = "co_lecturer"
	RoleTA         CourseRole = "ta"
	RoleStudent    CourseRole = "student"
)

var AllCourseRoles = []CourseRole{RoleOwner, RoleCoLecturer, RoleTA, RoleStudent}

func (r CourseRole) Valid() bool {
	switch r {
	case RoleOwner, RoleCoLecturer, RoleTA, RoleStudent:
		return true
	}
	return false
}

// IsStaff reports whether the role grants staff capabilities in its course.
func (r CourseRole) IsStaff() bool {
	switch r {
	case RoleOwner, RoleCoLecturer, RoleTA:
		return true
	case RoleStudent:
		return false
	}
	return false
}

// Application sections. Each authenticated user has exactly one canonical
// home among these; the route guard redirects everything else.
const (
	SectionSuperadmin = "/superadmin"
	SectionAdmin      = "/admin"
	SectionStaff      = "/staff"
	SectionDashboard  = "/dashboard" // student home
)

// Sections lists all guarded section prefixes.
var Sections = []string{SectionSuperadmin, SectionAdmin, SectionStaff, SectionDashboard}

// CourseMembership binds a user to a course under a single role.
type CourseMembership struct {
	CourseID string     `json:"course_id" validate:"required"`
	Role     CourseRole `json:"role" validate:"required,courserole"`
}

type User struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Username     string             `json:"username"`
	Email        string             `json:"email"`
	IsActive     *bool              `json:"is_active"`
	IsSuperadmin bool               `json:"is_superadmin"`
	OrgAdminOf   []string           `json:"org_admin_of"`
	CourseRoles  []CourseMembership `json:"course_roles"`
	PasswordHash []byte             `json:"-"`
	CreatedAt    time.Time          `json:"created_at"` // UTC
	UpdatedAt    time.Time          `json:"updated_at"` // UTC
	LastLogin    time.Time          `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

// IsOrgAdmin reports whether the user administers at least one organization.
func (u User) IsOrgAdmin() bool {
	return len(u.OrgAdminOf) > 0 || u.IsSuperadmin
}

// IsOrgAdminOf reports whether the user administers the given organization.
func (u User) IsOrgAdminOf(orgID string) bool {
	if u.IsSuperadmin {
		return true
	}
	for _, id := range u.OrgAdminOf {
		if id == orgID {
			return true
		}
	}
	return false
}

// IsStaff reports whether the user holds any non-student capability.
func (u User) IsStaff() bool {
	if u.IsSuperadmin || u.IsOrgAdmin() {
		return true
	}
	for _, m := range u.CourseRoles {
		if m.Role.IsStaff() {
			return true
		}
	}
	return false
}

// CourseRole returns the user's authoritative role in the given course.
// When duplicate memberships exist for one course the first entry wins;
// a second legitimate role is silently ignored.
func (u User) CourseRole(courseID string) (CourseRole, bool) {
	for _, m := range u.CourseRoles {
		if m.CourseID == courseID {
			return m.Role, true
		}
	}
	return "", false
}

// RedirectPath returns the user's canonical home. It is total and
// deterministic: precedence is superadmin > org admin > staff > student.
// Both guard layers and any navigation link must use it as the single
// source of truth for "home".
func (u User) RedirectPath() string {
	switch {
	case u.IsSuperadmin:
		return SectionSuperadmin
	case u.IsOrgAdmin():
		return SectionAdmin
	case u.IsStaff():
		return SectionStaff
	}
	return SectionDashboard
}

// HomeSection maps a request path to the guarded section prefix it belongs
// to, or "" when the path is not guarded.
func HomeSection(path string) string {
	for _, s := range Sections {
		if path == s || (len(path) > len(s) && path[:len(s)] == s && path[len(s)] == '/') {
			return s
		}
	}
	return ""
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string             `json:"name" validate:"required"`
	Username        string             `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string             `json:"email" validate:"omitempty,email"`
	Password        string             `json:"password" validate:"required"`
	PasswordConfirm string             `json:"password_confirm" validate:"required,eqfield=Password"`
	IsSuperadmin    bool               `json:"is_superadmin"`
	OrgAdminOf      []string           `json:"org_admin_of"`
	CourseRoles     []CourseMembership `json:"course_roles" validate:"omitempty,dive"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string             `json:"name"`
	Username        string             `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string             `json:"email" validate:"omitempty,email"`
	IsActive        *bool              `json:"is_active"`
	IsSuperadmin    *bool              `json:"is_superadmin"`
	OrgAdminOf      []string           `json:"org_admin_of"`
	CourseRoles     []CourseMembership `json:"course_roles" validate:"omitempty,dive"`
	Password        string             `json:"password" validate:"omitempty"`
	PasswordConfirm string             `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// GetFilter selects a single user. Fields are tried in order: ID,
// Username, Email, UsernameOrEmail.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail []string
}

type QueryFilter struct {
	Search      string    `query:"search"`
	IsStaff     *bool     `query:"is_staff"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsStaff == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
