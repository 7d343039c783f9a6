package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/silabo/core/academic"
	"github.com/trezcool/silabo/core/notification"
	"github.com/trezcool/silabo/core/syllabus"
	"github.com/trezcool/silabo/core/user"
)

type (
	DB struct {
		user         *userTable
		syllabus     *syllabusTable
		comment      *commentTable
		notification *notificationTable
		academicYear *academicYearTable
	}

	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}

	syllabusTable struct {
		table map[string]*syllabus.Syllabus
		mutex sync.RWMutex
	}

	commentTable struct {
		table map[string]*syllabus.Comment
		mutex sync.RWMutex
	}

	notificationTable struct {
		table map[string]*notification.Notification
		mutex sync.RWMutex
	}

	academicYearTable struct {
		table map[string]*academic.AcademicYear
		mutex sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		syllabus:     &syllabusTable{table: make(map[string]*syllabus.Syllabus)},
		comment:      &commentTable{table: make(map[string]*syllabus.Comment)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
		academicYear: &academicYearTable{table: make(map[string]*academic.AcademicYear)},
	}
	return db, nil
}

func newPK() string {
	return uuid.New().String()
}
