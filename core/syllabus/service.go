package syllabus

import (
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/trezcool/silabo/core"
	"github.com/trezcool/silabo/core/notification"
	"github.com/trezcool/silabo/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("syllabus not found")
	ErrCourseExists      = errors.New("a syllabus for this course already exists in this academic year")
	ErrIllegalTransition = errors.New("illegal status transition")
)

type (
	Repository interface {
		CheckCourseUniqueness(courseCode, academicYearID string, excluded ...Syllabus) error
		CreateSyllabus(s Syllabus) (Syllabus, error)
		GetSyllabusByID(id string) (Syllabus, error)
		// FilterSyllabi applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of
		// Syllabus.CourseCode or Syllabus.CourseTitle.
		FilterSyllabi(filter QueryFilter) ([]Syllabus, error)
		// UpdateSyllabus replaces the stored document and bumps its version.
		UpdateSyllabus(s Syllabus) (Syllabus, error)
		DeleteSyllabiByID(ids ...string) error
	}

	Service struct {
		repo     Repository
		usrSvc   *user.Service
		notifSvc *notification.Service
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	usrSvc *user.Service,
	notifSvc *notification.Service,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		usrSvc:   usrSvc,
		notifSvc: notifSvc,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

// Create persists a brand-new document and issues its identity. Drafts may
// be partial: the full schema is only enforced on the submit path, so a
// background save of a half-filled wizard never fails validation here.
func (svc *Service) Create(s Syllabus) (Syllabus, error) {
	s.Clean()
	if s.CourseCode != "" {
		if err := svc.checkCourseUniqueness(s.CourseCode, s.AcademicYearID); err != nil {
			return Syllabus{}, err
		}
	}

	now := time.Now().UTC()
	s.ID = "" // the repository issues identity
	if s.Status == "" {
		s.Status = StatusDraft
	}
	s.Version = 1
	s.CreatedAt = now
	s.UpdatedAt = now
	return svc.repo.CreateSyllabus(s)
}

// Update replaces the stored document. Status never changes through here;
// review transitions have their own operations.
func (svc *Service) Update(id string, s Syllabus) (Syllabus, error) {
	orig, err := svc.repo.GetSyllabusByID(id)
	if err != nil {
		return Syllabus{}, err
	}

	s.Clean()
	s.ID = id
	s.Status = orig.Status
	s.CreatedAt = orig.CreatedAt
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSyllabus(s)
}

func (svc *Service) GetByID(id string) (Syllabus, error) {
	return svc.repo.GetSyllabusByID(id)
}

func (svc *Service) Filter(filter QueryFilter) ([]Syllabus, error) {
	return svc.repo.FilterSyllabi(filter)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteSyllabiByID(ids...)
}

// SubmitForReview moves a draft (or a returned revision) into review.
// The full document is re-validated server-side; the wizard's client-side
// gate is advisory.
func (svc *Service) SubmitForReview(id string) (Syllabus, error) {
	s, err := svc.repo.GetSyllabusByID(id)
	if err != nil {
		return Syllabus{}, err
	}
	if err := ValidateDocument(&s); err != nil {
		return Syllabus{}, err
	}
	if !s.Status.CanTransitionTo(StatusPendingReview) {
		return Syllabus{}, transitionError(s.Status, StatusPendingReview)
	}

	s.Status = StatusPendingReview
	s.UpdatedAt = time.Now().UTC()
	saved, err := svc.repo.UpdateSyllabus(s)
	if err != nil {
		return Syllabus{}, err
	}

	svc.notifyReviewers(saved)
	return saved, nil
}

// Review settles a pending review: approve, or return for revision with a
// note. The lecturer is notified either way.
func (svc *Service) Review(id string, approve bool, note string, reviewer user.User) (Syllabus, error) {
	s, err := svc.repo.GetSyllabusByID(id)
	if err != nil {
		return Syllabus{}, err
	}

	next := StatusRevisionRequired
	outcome := "returned for revision"
	if approve {
		next = StatusApproved
		outcome = "approved"
	}
	if !s.Status.CanTransitionTo(next) {
		return Syllabus{}, transitionError(s.Status, next)
	}

	s.Status = next
	s.UpdatedAt = time.Now().UTC()
	saved, err := svc.repo.UpdateSyllabus(s)
	if err != nil {
		return Syllabus{}, err
	}

	svc.notifyLecturer(saved, outcome, note)
	return saved, nil
}

// Archive retires an approved syllabus.
func (svc *Service) Archive(id string) (Syllabus, error) {
	s, err := svc.repo.GetSyllabusByID(id)
	if err != nil {
		return Syllabus{}, err
	}
	if !s.Status.CanTransitionTo(StatusArchived) {
		return Syllabus{}, transitionError(s.Status, StatusArchived)
	}
	s.Status = StatusArchived
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSyllabus(s)
}

func (svc *Service) checkCourseUniqueness(code, yearID string, excl ...Syllabus) error {
	if err := svc.repo.CheckCourseUniqueness(code, yearID, excl...); err != nil {
		if err == ErrCourseExists {
			return core.NewValidationError(err, core.FieldError{Field: "course_code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) notifyReviewers(s Syllabus) {
	reviewers, err := svc.usrSvc.Filter(user.QueryFilter{Roles: user.ReviewerRoles})
	if err != nil {
		svc.logger.Error("querying reviewers", err)
		return
	}

	msg := fmt.Sprintf("%s submitted the %s syllabus for review", s.LecturerName, s.CourseCode)
	msgs := make([]*core.EmailMessage, 0, len(reviewers))
	ids := make([]string, 0, len(reviewers))
	for _, r := range reviewers {
		ids = append(ids, r.ID)
		if r.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: r.Name, Address: r.Email}},
			Subject:      fmt.Sprintf("[%s] Syllabus submitted for review: %s", core.Conf.AppName, s.CourseCode),
			TemplateName: "syllabus_submitted",
			TemplateData: struct {
				ReviewerName string
				LecturerName string
				CourseCode   string
				CourseTitle  string
				SyllabusID   string
			}{r.Name, s.LecturerName, s.CourseCode, s.CourseTitle, s.ID},
		})
	}
	svc.notifSvc.NotifyAll(ids, notification.KindSyllabusSubmitted, msg, s.ID)
	svc.mailSvc.SendMessages(msgs...)
}

func (svc *Service) notifyLecturer(s Syllabus, outcome, note string) {
	msg := fmt.Sprintf("your %s syllabus was %s", s.CourseCode, outcome)
	svc.notifSvc.NotifyAll([]string{s.LecturerID}, notification.KindSyllabusReviewed, msg, s.ID)

	lect, err := svc.usrSvc.GetByID(s.LecturerID)
	if err != nil || lect.Email == "" {
		if err != nil {
			svc.logger.Error("querying lecturer", err)
		}
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: lect.Name, Address: lect.Email}},
		Subject:      fmt.Sprintf("[%s] Syllabus %s: %s", core.Conf.AppName, outcome, s.CourseCode),
		TemplateName: "syllabus_reviewed",
		TemplateData: struct {
			LecturerName string
			CourseCode   string
			Outcome      string
			Note         string
			SyllabusID   string
		}{lect.Name, s.CourseCode, outcome, note, s.ID},
	})
}

func transitionError(from, to Status) error {
	return core.NewValidationError(
		ErrIllegalTransition,
		core.FieldError{Field: "status", Error: fmt.Sprintf("cannot move from %s to %s", from, to)},
	)
}
