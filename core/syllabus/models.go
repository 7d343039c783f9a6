package syllabus

import (
	"strings"
	"time"

	"github.com/trezcool/silabo/core"
)

// Status is the review lifecycle state of a Syllabus.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusPendingReview    Status = "pending_review"
	StatusRevisionRequired Status = "revision_required"
	StatusApproved         Status = "approved"
	StatusArchived         Status = "archived"
)

var statusTransitions = map[Status][]Status{
	StatusDraft:            {StatusPendingReview},
	StatusPendingReview:    {StatusApproved, StatusRevisionRequired},
	StatusRevisionRequired: {StatusPendingReview},
	StatusApproved:         {StatusArchived},
	StatusArchived:         {},
}

func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether next is a legal transition from s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range statusTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

type (
	// Outcome is a learning outcome the course commits to.
	Outcome struct {
		ID          string `json:"id"`
		Code        string `json:"code" validate:"required"`
		Description string `json:"description" validate:"required"`
	}

	WeeklyTopic struct {
		ID      string `json:"id"`
		Week    int    `json:"week" validate:"required,min=1,max=18"`
		Title   string `json:"title" validate:"required"`
		Content string `json:"content"`
		// OutcomeIDs lists the learning outcomes this topic covers.
		OutcomeIDs []string `json:"outcome_ids"`
	}

	Assessment struct {
		ID    string  `json:"id"`
		Kind  string  `json:"kind" validate:"required,oneof=exam test assignment project practical participation"`
		Title string  `json:"title" validate:"required"`
		// Weight is the percentage share of the final grade.
		Weight     float64  `json:"weight" validate:"min=0,max=100"`
		OutcomeIDs []string `json:"outcome_ids"`
	}

	Reference struct {
		ID      string `json:"id"`
		Title   string `json:"title" validate:"required"`
		Authors string `json:"authors" validate:"required"`
		Year    int    `json:"year" validate:"omitempty,min=1900,max=2100"`
		Kind    string `json:"kind" validate:"required,oneof=book article online other"`
	}

	// Syllabus is the in-progress or persisted course syllabus document.
	// ID is empty until the first successful create; once set it is
	// immutable for the lifetime of the editing session.
	Syllabus struct {
		ID             string        `json:"id"`
		AcademicYearID string        `json:"academic_year_id" validate:"required"`
		CourseCode     string        `json:"course_code" validate:"required,coursecode"`
		CourseTitle    string        `json:"course_title" validate:"required"`
		Credits        int           `json:"credits" validate:"required,min=1,max=30"`
		Semester       int           `json:"semester" validate:"required,min=1,max=3"`
		Summary        string        `json:"summary"`
		LecturerID     string        `json:"lecturer_id" validate:"required"`
		LecturerName   string        `json:"lecturer_name"`
		Status         Status        `json:"status"`
		Version        int           `json:"version"`
		Outcomes       []Outcome     `json:"outcomes" validate:"dive"`
		Topics         []WeeklyTopic `json:"topics" validate:"dive"`
		References     []Reference   `json:"references" validate:"dive"`
		Assessments    []Assessment  `json:"assessments" validate:"dive"`
		CreatedAt      time.Time     `json:"created_at"` // UTC
		UpdatedAt      time.Time     `json:"updated_at"` // UTC
	}
)

// Persisted reports whether the document has a server identity.
func (s *Syllabus) Persisted() bool { return s.ID != "" }

// OwnerID satisfies core.Owned; the owning lecturer may edit and submit.
func (s *Syllabus) OwnerID() string { return s.LecturerID }

func (s *Syllabus) Clean() {
	s.CourseCode = strings.ToUpper(core.CleanString(s.CourseCode))
	s.CourseTitle = core.CleanString(s.CourseTitle)
	s.Summary = core.CleanString(s.Summary)
}

// OutcomeByID returns the outcome with the given id, if any.
func (s *Syllabus) OutcomeByID(id string) (Outcome, bool) {
	for _, o := range s.Outcomes {
		if o.ID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

type QueryFilter struct {
	Search         string   `query:"search"`
	AcademicYearID string   `query:"academic_year"`
	LecturerID     string   `query:"lecturer"`
	Statuses       []Status `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.AcademicYearID == "" && qf.LecturerID == "" && qf.Statuses == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
