package testutil

import (
	"testing"
	"time"

	"github.com/trezcool/silabo/core"
	"github.com/trezcool/silabo/core/syllabus"
	"github.com/trezcool/silabo/core/user"
)

// InitConfig sets up a test configuration singleton. Safe to call from
// multiple TestMains.
func InitConfig() *core.Config {
	if core.Conf == nil {
		core.Conf = &core.Config{
			Debug:            false,
			TestMode:         true,
			Env:              "TEST",
			AppName:          "Silabo",
			SecretKey:        "s3cr3t-f0r-t3sts-0nly",
			FrontendBaseURL:  "http://localhost:3000",
			DefaultFromEmail: "noreply@localhost",
			AutosaveInterval: 20 * time.Millisecond,
			Server: core.ServerConfig{
				Host:                      "localhost",
				JWTExpirationDelta:        10 * time.Minute,
				JWTRefreshExpirationDelta: time.Hour,
			},
		}
	}
	return core.Conf
}

// NewLogger returns a no-op core.Logger.
func NewLogger(t *testing.T) core.Logger {
	return testLogger{t: t}
}

type testLogger struct {
	t *testing.T
}

func (l testLogger) Debug(msg string, args ...interface{}) { l.log(msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.log(msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.log(msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.log(msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.t.Fatal(msg, args) }

func (l testLogger) log(msg string, args []interface{}) {
	if len(args) > 0 {
		l.t.Logf("%s %v", msg, args)
	} else {
		l.t.Log(msg)
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
) user.User {
	tstamp := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CompleteSyllabus returns a document that passes every wizard step.
func CompleteSyllabus(yearID, lecturerID string) syllabus.Syllabus {
	return syllabus.Syllabus{
		AcademicYearID: yearID,
		CourseCode:     "SE301",
		CourseTitle:    "Software Engineering III",
		Credits:        4,
		Semester:       1,
		Summary:        "Design and construction of large software systems.",
		LecturerID:     lecturerID,
		Outcomes: []syllabus.Outcome{
			{ID: "o1", Code: "LO1", Description: "Design modular systems"},
			{ID: "o2", Code: "LO2", Description: "Apply testing strategies"},
			{ID: "o3", Code: "LO3", Description: "Work in teams on large codebases"},
		},
		Topics: []syllabus.WeeklyTopic{
			{ID: "t1", Week: 1, Title: "Architecture", OutcomeIDs: []string{"o1"}},
			{ID: "t2", Week: 2, Title: "Testing", OutcomeIDs: []string{"o2"}},
			{ID: "t3", Week: 3, Title: "Collaboration", OutcomeIDs: []string{"o3"}},
		},
		References: []syllabus.Reference{
			{ID: "r1", Title: "Software Engineering", Authors: "Sommerville", Year: 2015, Kind: "book"},
		},
		Assessments: []syllabus.Assessment{
			{ID: "a1", Kind: "exam", Title: "Final Exam", Weight: 60, OutcomeIDs: []string{"o1", "o2"}},
			{ID: "a2", Kind: "project", Title: "Team Project", Weight: 40, OutcomeIDs: []string{"o3"}},
		},
	}
}
