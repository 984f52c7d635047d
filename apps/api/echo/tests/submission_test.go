package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_submissionApi_create(t *testing.T) {
	env := setup(t)

	o := testutil.CreateOrg(t, env.orgRepo, "Uni")
	c := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")
	a := testutil.CreateAssignment(t, env.orgRepo, c.ID, "HW1", 20)

	student := testutil.CreateUser(t, env.usrRepo, "Student", "student1", "student@test.cd", "", true,
		func(u *user.User) { u.CourseRoles = []user.CourseMembership{{CourseID: c.ID, Role: user.RoleStudent}} })
	staff := testutil.CreateUser(t, env.usrRepo, "Owner", "owner1", "owner@test.cd", "", true,
		func(u *user.User) { u.CourseRoles = []user.CourseMembership{{CourseID: c.ID, Role: user.RoleOwner}} })
	outsider := testutil.CreateUser(t, env.usrRepo, "Out", "outsider1", "out@test.cd", "", true)

	body := marchallObj(t, submission.NewSubmission{AssignmentID: a.ID, FileName: "solution.zip", FileSize: 2048})

	t.Run("student submits", func(t *testing.T) {
		req, rec := env.newAuthRequest(http.MethodPost, "/v1/courses/"+c.ID+"/submissions", env.getToken(t, student), body)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var sub submission.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if sub.Status != submission.StatusPending {
			t.Errorf("status = %v, want %v", sub.Status, submission.StatusPending)
		}
		if sub.StudentID != student.ID {
			t.Errorf("student_id = %q, want %q", sub.StudentID, student.ID)
		}
	})

	tests := []httpTest{
		{
			name: "staff cannot submit", method: http.MethodPost, path: "/v1/courses/" + c.ID + "/submissions",
			body: body, token: env.getToken(t, staff), wantCode: http.StatusForbidden,
		},
		{
			name: "non-members cannot submit", method: http.MethodPost, path: "/v1/courses/" + c.ID + "/submissions",
			body: body, token: env.getToken(t, outsider), wantCode: http.StatusForbidden,
		},
		{name: "auth required", method: http.MethodPost, path: "/v1/courses/" + c.ID + "/submissions", body: body, wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := env.newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("code = %v, want %v", rec.Code, tt.wantCode)
			}
		})
	}
}

func Test_submissionApi_override(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	o := testutil.CreateOrg(t, env.orgRepo, "Uni")
	c := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")
	other := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS201", "Advanced")
	a := testutil.CreateAssignment(t, env.orgRepo, c.ID, "HW1", 20)

	student := testutil.CreateUser(t, env.usrRepo, "Student", "student1", "student@test.cd", "", true,
		func(u *user.User) { u.CourseRoles = []user.CourseMembership{{CourseID: c.ID, Role: user.RoleStudent}} })
	staff := testutil.CreateUser(t, env.usrRepo, "Owner", "owner1", "owner@test.cd", "", true,
		func(u *user.User) { u.CourseRoles = []user.CourseMembership{{CourseID: c.ID, Role: user.RoleOwner}} })
	otherStaff := testutil.CreateUser(t, env.usrRepo, "TA", "ta0001", "ta@test.cd", "", true,
		func(u *user.User) { u.CourseRoles = []user.CourseMembership{{CourseID: other.ID, Role: user.RoleTA}} })

	sub := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, student.ID, submission.StatusPending)
	staffToken := env.getToken(t, staff)

	t.Run("staff of another course is rejected", func(t *testing.T) {
		body := marchallObj(t, submission.Override{Status: submission.StatusGraded, Score: "10"})
		req, rec := env.newAuthRequest(http.MethodPut, "/v1/submissions/"+sub.ID+"/override", env.getToken(t, otherStaff), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("students cannot grade", func(t *testing.T) {
		body := marchallObj(t, submission.Override{Status: submission.StatusGraded, Score: "20"})
		req, rec := env.newAuthRequest(http.MethodPut, "/v1/submissions/"+sub.ID+"/override", env.getToken(t, student), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("score must be numeric", func(t *testing.T) {
		body := marchallObj(t, submission.Override{Status: submission.StatusGraded, Score: "twenty"})
		req, rec := env.newAuthRequest(http.MethodPut, "/v1/submissions/"+sub.ID+"/override", staffToken, body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"score": "score must be a number"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("score must be on the assignment scale", func(t *testing.T) {
		body := marchallObj(t, submission.Override{Status: submission.StatusGraded, Score: "25"})
		req, rec := env.newAuthRequest(http.MethodPut, "/v1/submissions/"+sub.ID+"/override", staffToken, body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"score": "score must be between 0 and 20"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("target status must be terminal", func(t *testing.T) {
		for _, status := range []submission.Status{submission.StatusPending, submission.StatusGrading} {
			body := marchallObj(t, submission.Override{Status: status, Score: "10"})
			req, rec := env.newAuthRequest(http.MethodPut, "/v1/submissions/"+sub.ID+"/override", staffToken, body)
			env.app.ServeHTTP(rec, req)

			tt := httpTest{
				wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{"status": "status must be graded or error"}),
			}
			checkCodeAndData(t, tt, rec)
		}

		// nothing reached storage
		got, err := env.subRepo.GetSubmission(ctx, sub.ID)
		if err != nil {
			t.Fatalf("GetSubmission() failed: %v", err)
		}
		if got.Status != submission.StatusPending || got.Score.Valid {
			t.Errorf("unexpected submission: %+v", got)
		}
	})

	t.Run("grading commits, audits and notifies", func(t *testing.T) {
		body := marchallObj(t, submission.Override{Status: submission.StatusGraded, Score: "15.5", Feedback: "solid"})
		req, rec := env.newAuthRequest(http.MethodPut, "/v1/submissions/"+sub.ID+"/override", staffToken, body)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var got submission.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.Status != submission.StatusGraded || !got.Score.Valid || got.Score.Float64 != 15.5 {
			t.Errorf("unexpected submission: %+v", got)
		}

		events, err := env.auditRepo.QueryEvents(ctx, o.ID, 0, 0)
		if err != nil {
			t.Fatalf("QueryEvents() failed: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("audit events = %d, want 1", len(events))
		}
		if events[0].Actor != staff.Email || events[0].Action != "grade_override" {
			t.Errorf("unexpected event: %+v", events[0])
		}

		notifs, err := env.notifRepo.QueryNotifications(ctx, notification.QueryFilter{Recipient: student.ID})
		if err != nil {
			t.Fatalf("QueryNotifications() failed: %v", err)
		}
		if len(notifs) != 1 {
			t.Fatalf("notifications = %d, want 1", len(notifs))
		}
		if want := user.SectionDashboard + "/submissions/" + sub.ID; notifs[0].LinkURL != want {
			t.Errorf("link_url = %q, want %q", notifs[0].LinkURL, want)
		}
	})

	t.Run("students see their graded submission", func(t *testing.T) {
		req, rec := env.newAuthRequest(http.MethodGet, "/v1/submissions/"+sub.ID, env.getToken(t, student))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
	})

	t.Run("strangers get a 404", func(t *testing.T) {
		req, rec := env.newAuthRequest(http.MethodGet, "/v1/submissions/"+sub.ID, env.getToken(t, otherStaff))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_submissionApi_nextUngraded(t *testing.T) {
	env := setup(t)

	o := testutil.CreateOrg(t, env.orgRepo, "Uni")
	c := testutil.CreateCourse(t, env.orgRepo, o.ID, "CS101", "Intro")
	a := testutil.CreateAssignment(t, env.orgRepo, c.ID, "HW1", 20)
	staff := testutil.CreateUser(t, env.usrRepo, "Owner", "owner1", "owner@test.cd", "", true,
		func(u *user.User) { u.CourseRoles = []user.CourseMembership{{CourseID: c.ID, Role: user.RoleOwner}} })
	token := env.getToken(t, staff)

	now := time.Now().UTC()
	subA := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "s1", submission.StatusPending, now)
	testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "s2", submission.StatusGraded, now.Add(time.Second))
	subC := testutil.CreateSubmission(t, env.subRepo, c.ID, a.ID, "s3", submission.StatusPending, now.Add(2*time.Second))

	next := func(after string) (int, NextUngradedResponse) {
		req, rec := env.newAuthRequest(http.MethodGet, "/v1/courses/"+c.ID+"/submissions/next?after="+after, token)
		env.app.ServeHTTP(rec, req)
		var resp NextUngradedResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		return rec.Code, resp
	}

	t.Run("skips graded work", func(t *testing.T) {
		code, resp := next(subA.ID)
		if code != http.StatusOK {
			t.Fatalf("code = %v", code)
		}
		if resp.Submission == nil || resp.Submission.ID != subC.ID {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("end of queue reports done", func(t *testing.T) {
		code, resp := next(subC.ID)
		if code != http.StatusOK {
			t.Fatalf("code = %v", code)
		}
		if !resp.Done || resp.Submission != nil {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("unknown cursor is a 404", func(t *testing.T) {
		code, _ := next("nope")
		if code != http.StatusNotFound {
			t.Errorf("code = %v, want %v", code, http.StatusNotFound)
		}
	})
}
