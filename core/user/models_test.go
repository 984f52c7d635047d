package user

import "testing"

func TestUser_RedirectPath(t *testing.T) {
	tests := []struct {
		name string
		usr  User
		want string
	}{
		{name: "zero user is a student", usr: User{}, want: SectionDashboard},
		{name: "student", usr: User{CourseRoles: []CourseMembership{{CourseID: "c1", Role: RoleStudent}}}, want: SectionDashboard},
		{name: "ta", usr: User{CourseRoles: []CourseMembership{{CourseID: "c1", Role: RoleTA}}}, want: SectionStaff},
		{name: "co-lecturer", usr: User{CourseRoles: []CourseMembership{{CourseID: "c1", Role: RoleCoLecturer}}}, want: SectionStaff},
		{name: "owner", usr: User{CourseRoles: []CourseMembership{{CourseID: "c1", Role: RoleOwner}}}, want: SectionStaff},
		{name: "org admin", usr: User{OrgAdminOf: []string{"o1"}}, want: SectionAdmin},
		{
			name: "org admin beats staff",
			usr:  User{OrgAdminOf: []string{"o1"}, CourseRoles: []CourseMembership{{CourseID: "c1", Role: RoleOwner}}},
			want: SectionAdmin,
		},
		{name: "superadmin", usr: User{IsSuperadmin: true}, want: SectionSuperadmin},
		{
			name: "superadmin beats org admin",
			usr:  User{IsSuperadmin: true, OrgAdminOf: []string{"o1", "o2"}},
			want: SectionSuperadmin,
		},
		{
			name: "student in many courses stays student",
			usr: User{CourseRoles: []CourseMembership{
				{CourseID: "c1", Role: RoleStudent},
				{CourseID: "c2", Role: RoleStudent},
			}},
			want: SectionDashboard,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.usr.RedirectPath(); got != tt.want {
				t.Errorf("RedirectPath() = %v, want %v", got, tt.want)
			}
			// deterministic
			if got := tt.usr.RedirectPath(); got != tt.want {
				t.Errorf("RedirectPath() second call = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_IsStaff(t *testing.T) {
	tests := []struct {
		name string
		usr  User
		want bool
	}{
		{name: "zero user", usr: User{}, want: false},
		{name: "student only", usr: User{CourseRoles: []CourseMembership{{CourseID: "c1", Role: RoleStudent}}}, want: false},
		{name: "ta", usr: User{CourseRoles: []CourseMembership{{CourseID: "c1", Role: RoleTA}}}, want: true},
		{
			name: "student in one course, ta in another",
			usr: User{CourseRoles: []CourseMembership{
				{CourseID: "c1", Role: RoleStudent},
				{CourseID: "c2", Role: RoleTA},
			}},
			want: true,
		},
		{name: "org admin without courses", usr: User{OrgAdminOf: []string{"o1"}}, want: true},
		{name: "superadmin without courses", usr: User{IsSuperadmin: true}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.usr.IsStaff(); got != tt.want {
				t.Errorf("IsStaff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_IsOrgAdmin(t *testing.T) {
	tests := []struct {
		name string
		usr  User
		want bool
	}{
		{name: "zero user", usr: User{}, want: false},
		{name: "one org", usr: User{OrgAdminOf: []string{"o1"}}, want: true},
		{name: "many orgs", usr: User{OrgAdminOf: []string{"o1", "o2", "o3"}}, want: true},
		{name: "superadmin with no orgs", usr: User{IsSuperadmin: true}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.usr.IsOrgAdmin(); got != tt.want {
				t.Errorf("IsOrgAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_CourseRole(t *testing.T) {
	usr := User{CourseRoles: []CourseMembership{
		{CourseID: "c1", Role: RoleStudent},
		{CourseID: "c2", Role: RoleOwner},
		{CourseID: "c1", Role: RoleTA}, // duplicate: first entry is authoritative
	}}

	tests := []struct {
		name     string
		courseID string
		want     CourseRole
		wantOK   bool
	}{
		{name: "no membership", courseID: "nope", want: "", wantOK: false},
		{name: "single membership", courseID: "c2", want: RoleOwner, wantOK: true},
		{name: "duplicate membership: first match wins", courseID: "c1", want: RoleStudent, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := usr.CourseRole(tt.courseID)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CourseRole(%q) = (%v, %v), want (%v, %v)", tt.courseID, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestHomeSection(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/staff", want: SectionStaff},
		{path: "/staff/submissions/42", want: SectionStaff},
		{path: "/dashboard", want: SectionDashboard},
		{path: "/admin/orgs", want: SectionAdmin},
		{path: "/superadmin", want: SectionSuperadmin},
		{path: "/staffroom", want: ""}, // prefix match is segment-aware
		{path: "/login", want: ""},
		{path: "/", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := HomeSection(tt.path); got != tt.want {
				t.Errorf("HomeSection(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
