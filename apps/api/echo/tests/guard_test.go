package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_guard_edgeLayer(t *testing.T) {
	env := setup(t)

	tests := []httpTest{
		{
			name: "guarded section without cookie redirects to login",
			path: "/staff", wantCode: http.StatusFound, wantLoc: "/login?next=%2Fstaff",
		},
		{
			name: "query string is preserved in next",
			path: "/staff/submissions?course=c1", wantCode: http.StatusFound,
			wantLoc: "/login?next=%2Fstaff%2Fsubmissions%3Fcourse%3Dc1",
		},
		{name: "login page is not guarded", path: "/login", wantCode: http.StatusOK},
		{name: "root is not guarded", path: "/", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := env.newRequest(http.MethodGet, tt.path)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("unrouted guarded path is still caught before routing", func(t *testing.T) {
		req, rec := env.newRequest(http.MethodPost, "/staff")
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusFound {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusFound)
		}
	})
}

func Test_guard_edgeLayerCrossOrigin(t *testing.T) {
	// the edge layer must no-op when the request host is not the public origin
	env := setup(t, func(conf *core.Config) {
		conf.API.PublicOrigin = "http://app.internal.example.net"
	})

	// the session layer still owns authentication
	req, rec := env.newRequest(http.MethodGet, "/staff")
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Errorf("code = %v, want %v", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?next=%2Fstaff" {
		t.Errorf("location = %q", loc)
	}

	// before the edge layer can act, an unrouted path falls through to the router
	req, rec = env.newRequest(http.MethodPost, "/staff")
	env.app.ServeHTTP(rec, req)
	if rec.Code == http.StatusFound {
		t.Error("edge layer must not redirect when the origin does not match")
	}
}

func Test_guard_sections(t *testing.T) {
	env := setup(t)

	o := testutil.CreateOrg(t, env.orgRepo, "Uni")
	c := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")

	student := testutil.CreateUser(t, env.usrRepo, "Student", "student1", "student@test.cd", "", true,
		func(u *user.User) { u.CourseRoles = []user.CourseMembership{{CourseID: c.ID, Role: user.RoleStudent}} })
	staff := testutil.CreateUser(t, env.usrRepo, "Owner", "owner1", "owner@test.cd", "", true,
		func(u *user.User) { u.CourseRoles = []user.CourseMembership{{CourseID: c.ID, Role: user.RoleOwner}} })
	orgAdmin := testutil.CreateUser(t, env.usrRepo, "Org Admin", "orgadmin1", "orgadmin@test.cd", "", true,
		func(u *user.User) { u.OrgAdminOf = []string{o.ID} })
	superadmin := testutil.CreateUser(t, env.usrRepo, "Root", "root01", "root@test.cd", "", true,
		func(u *user.User) { u.IsSuperadmin = true })
	inactive := testutil.CreateUser(t, env.usrRepo, "Gone", "gone01", "gone@test.cd", "", false)

	tests := []httpTest{
		// every user lands on their canonical home
		{name: "student home", path: "/dashboard", token: env.getToken(t, student), wantCode: http.StatusOK},
		{name: "staff home", path: "/staff", token: env.getToken(t, staff), wantCode: http.StatusOK},
		{name: "org admin home", path: "/admin", token: env.getToken(t, orgAdmin), wantCode: http.StatusOK},
		{name: "superadmin home", path: "/superadmin", token: env.getToken(t, superadmin), wantCode: http.StatusOK},

		// everything else redirects to the canonical home
		{name: "student cannot browse staff", path: "/staff", token: env.getToken(t, student), wantCode: http.StatusFound, wantLoc: "/dashboard"},
		{name: "student cannot browse admin", path: "/admin", token: env.getToken(t, student), wantCode: http.StatusFound, wantLoc: "/dashboard"},
		{name: "student cannot browse superadmin", path: "/superadmin", token: env.getToken(t, student), wantCode: http.StatusFound, wantLoc: "/dashboard"},
		{name: "staff cannot browse dashboard", path: "/dashboard", token: env.getToken(t, staff), wantCode: http.StatusFound, wantLoc: "/staff"},
		{name: "staff cannot browse admin", path: "/admin", token: env.getToken(t, staff), wantCode: http.StatusFound, wantLoc: "/staff"},
		{name: "org admin cannot browse superadmin", path: "/superadmin", token: env.getToken(t, orgAdmin), wantCode: http.StatusFound, wantLoc: "/admin"},
		{name: "subpaths are guarded too", path: "/staff/submissions/42", token: env.getToken(t, student), wantCode: http.StatusFound, wantLoc: "/dashboard"},

		// view-as-student only widens the student dashboard for staff
		{name: "staff viewing as student reaches dashboard", path: "/dashboard", token: env.getToken(t, staff, true), wantCode: http.StatusOK},
		{name: "org admin viewing as student reaches dashboard", path: "/dashboard", token: env.getToken(t, orgAdmin, true), wantCode: http.StatusOK},
		{name: "view flag grants nothing else", path: "/admin", token: env.getToken(t, staff, true), wantCode: http.StatusFound, wantLoc: "/staff"},
		{name: "view flag on a student changes nothing", path: "/staff", token: env.getToken(t, student, true), wantCode: http.StatusFound, wantLoc: "/dashboard"},

		// broken sessions land on the login page
		{name: "garbage token", path: "/staff", token: "garbage", wantCode: http.StatusFound, wantLoc: "/login?next=%2Fstaff"},
		{name: "deactivated user", path: "/dashboard", token: env.getToken(t, inactive), wantCode: http.StatusFound, wantLoc: "/login?next=%2Fdashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := env.newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("dangling cookie is cleared", func(t *testing.T) {
		req, rec := env.newAuthRequest(http.MethodGet, "/staff", "garbage")
		env.app.ServeHTTP(rec, req)

		var cleared bool
		for _, sc := range rec.Header().Values("Set-Cookie") {
			if strings.HasPrefix(sc, env.conf.Session.CookieName+"=") && strings.Contains(sc, "Max-Age=0") {
				cleared = true
			}
		}
		if !cleared {
			t.Error("expected the session cookie to be cleared")
		}
	})
}
