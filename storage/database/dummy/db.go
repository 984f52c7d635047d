package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/audit"
	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/org"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user         *userTable
		org          *orgTable
		submission   *submissionTable
		notification *notificationTable
		audit        *auditTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	orgTable struct {
		sync.RWMutex
		orgs        map[string]*org.Organization
		courses     map[string]*org.Course
		assignments map[string]*org.Assignment
	}

	submissionTable struct {
		sync.RWMutex
		table map[string]*submission.Submission
	}

	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Notification
	}

	auditTable struct {
		sync.RWMutex
		table []audit.Event
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		org: &orgTable{
			orgs:        make(map[string]*org.Organization),
			courses:     make(map[string]*org.Course),
			assignments: make(map[string]*org.Assignment),
		},
		submission:   &submissionTable{table: make(map[string]*submission.Submission)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
		audit:        &auditTable{},
	}
	return db, nil
}
