package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/org"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

// NewConfig returns a self-contained test configuration; nothing is read
// from the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:      "TEST",
		AppName:  "Darasa",
		Debug:    true,
		TestMode: true,

		SecretKey:                 "secretsecretsecret!!",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,

		Server: core.ServerConfig{
			Host:                      "127.0.0.1",
			Port:                      "8000",
			ShutdownTimeout:           5 * time.Second,
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Session: core.SessionConfig{
			CookieName: "darasa_session",
		},
		Notification: core.NotificationConfig{
			PollInterval: 10 * time.Millisecond,
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	isActive bool,
	mutate ...func(*user.User),
) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(isActive)
	for _, fn := range mutate {
		fn(&usr)
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateOrg(t *testing.T, repo org.Repository, name string) org.Organization {
	t.Helper()

	now := time.Now().UTC()
	o, err := repo.CreateOrganization(context.Background(), org.Organization{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateOrg() failed: %v", err)
	}
	return o
}

func CreateCourse(t *testing.T, repo org.Repository, orgID, code, title string) org.Course {
	t.Helper()

	now := time.Now().UTC()
	c, err := repo.CreateCourse(context.Background(), org.Course{
		OrgID:     orgID,
		Code:      code,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func CreateAssignment(t *testing.T, repo org.Repository, courseID, title string, maxPoints float64) org.Assignment {
	t.Helper()

	now := time.Now().UTC()
	a, err := repo.CreateAssignment(context.Background(), org.Assignment{
		CourseID:  courseID,
		Title:     title,
		MaxPoints: maxPoints,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}

func CreateSubmission(
	t *testing.T,
	repo submission.Repository,
	courseID, assignmentID, studentID string,
	status submission.Status,
	submittedAt ...time.Time,
) submission.Submission {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(submittedAt) > 0 {
		tstamp = submittedAt[0].UTC()
	}
	s, err := repo.CreateSubmission(context.Background(), submission.Submission{
		CourseID:     courseID,
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Status:       status,
		FileName:     "solution.zip",
		FileSize:     1024,
		SubmittedAt:  tstamp,
		UpdatedAt:    tstamp,
	})
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return s
}

// EmailServiceMock records sent messages instead of delivering them.
type EmailServiceMock struct {
	mu           sync.Mutex
	SentMessages []*core.EmailMessage
}

var _ core.EmailService = (*EmailServiceMock)(nil)

func (svc *EmailServiceMock) SendMessages(messages ...*core.EmailMessage) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.SentMessages = append(svc.SentMessages, messages...)
}

// LoggerMock discards all log output.
type LoggerMock struct{}

var _ core.Logger = (*LoggerMock)(nil)

func (LoggerMock) Debug(string, ...interface{}) {}
func (LoggerMock) Info(string, ...interface{})  {}
func (LoggerMock) Warn(string, ...interface{})  {}
func (LoggerMock) Error(string, ...interface{}) {}
func (LoggerMock) Fatal(string, ...interface{}) {}
