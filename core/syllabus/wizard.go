package syllabus

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/silabo/core"
)

// Step identifies a wizard step, 1..StepCount.
type Step int

const (
	StepCourseInfo Step = iota + 1
	StepOutcomes
	StepTopics
	StepReferences
	StepAssessments
	StepReview // terminal

	StepCount = int(StepReview)
)

type StepDefinition struct {
	Step Step
	Name string
	// Fields names the Syllabus struct fields this step owns; they are
	// validated with the schema validator when the step is left forward.
	Fields []string
	// Checks are the step's cross-field invariants.
	Checks []CrossFieldCheck
}

// wizardSteps is fixed for the document type; the order defines the total
// navigation order.
var wizardSteps = []StepDefinition{
	{
		Step:   StepCourseInfo,
		Name:   "course info",
		Fields: []string{"AcademicYearID", "CourseCode", "CourseTitle", "Credits", "Semester"},
	},
	{
		Step:   StepOutcomes,
		Name:   "learning outcomes",
		Fields: []string{"Outcomes"},
		Checks: []CrossFieldCheck{checkMinOutcomes},
	},
	{
		Step:   StepTopics,
		Name:   "weekly topics",
		Fields: []string{"Topics"},
		Checks: []CrossFieldCheck{checkTopicCoverage},
	},
	{
		Step:   StepReferences,
		Name:   "references",
		Fields: []string{"References"},
		Checks: []CrossFieldCheck{checkMinReferences},
	},
	{
		Step:   StepAssessments,
		Name:   "assessments",
		Fields: []string{"Assessments"},
		Checks: []CrossFieldCheck{checkWeightSum, checkAssessmentCoverage},
	},
	{
		Step: StepReview,
		Name: "review & submit",
	},
}

var errNotOnReviewStep = errors.New("submission is only available from the review step")

// Wizard is the step-gated editor for one draft session. Forward navigation
// is admitted per step; backward navigation and jumps from the review step
// are unconditional. Validation failures are local: they populate the step's
// error state and block only the attempted move.
type Wizard struct {
	session *DraftSession
	steps   []StepDefinition
	active  int // index into steps
	errs    map[Step][]core.FieldError
}

func NewWizard(session *DraftSession) *Wizard {
	return &Wizard{
		session: session,
		steps:   wizardSteps,
		errs:    make(map[Step][]core.FieldError),
	}
}

// Step returns the active step.
func (w *Wizard) Step() Step { return w.steps[w.active].Step }

// Errors returns the recorded validation errors for a step.
func (w *Wizard) Errors(step Step) []core.FieldError { return w.errs[step] }

// Next validates the active step against the current document and advances
// on success. On failure the failing fields are recorded for display and
// the wizard stays put.
func (w *Wizard) Next() bool {
	def := w.steps[w.active]
	if def.Step == StepReview { // terminal: no outgoing Next
		return false
	}

	doc := w.session.Document()
	if flds := validateStep(&doc, def); len(flds) > 0 {
		w.errs[def.Step] = flds
		return false
	}

	delete(w.errs, def.Step)
	w.active++
	return true
}

// Previous moves back one step without validation, down to a floor of the
// first step.
func (w *Wizard) Previous() bool {
	if w.active == 0 {
		return false
	}
	w.active--
	return true
}

// JumpTo moves to the given step unconditionally. Editing an earlier step
// from the review summary must not re-run the forward-chain validation;
// only leaving it via Next does.
func (w *Wizard) JumpTo(step Step) {
	for i, def := range w.steps {
		if def.Step == step {
			w.active = i
			return
		}
	}
}

// Submit re-runs full-document validation (earlier steps' data may have
// gone stale relative to later edits) and hands the document to the draft
// session's submit path. Only available on the review step.
func (w *Wizard) Submit(ctx context.Context) (Syllabus, error) {
	if w.Step() != StepReview {
		return Syllabus{}, errNotOnReviewStep
	}

	doc := w.session.Document()
	var all []core.FieldError
	for _, def := range w.steps {
		if flds := validateStep(&doc, def); len(flds) > 0 {
			w.errs[def.Step] = flds
			all = append(all, flds...)
		} else {
			delete(w.errs, def.Step)
		}
	}
	if len(all) > 0 {
		return Syllabus{}, core.NewValidationError(errors.New("the syllabus has incomplete steps"), all...)
	}

	return w.session.Submit(ctx)
}

// ValidateDocument runs every step's schema fields and cross-field checks
// against the full document. The submit path uses it server-side; the
// wizard's own gating is advisory.
func ValidateDocument(doc *Syllabus) error {
	var all []core.FieldError
	for _, def := range wizardSteps {
		all = append(all, validateStep(doc, def)...)
	}
	if len(all) > 0 {
		return core.NewValidationError(errors.New("the syllabus is incomplete"), all...)
	}
	return nil
}

// validateStep runs the step's required-field set through the schema
// validator, then its cross-field invariants.
func validateStep(doc *Syllabus, def StepDefinition) []core.FieldError {
	var flds []core.FieldError

	if len(def.Fields) > 0 {
		if err := core.Validate.StructPartial(doc, def.Fields...); err != nil {
			var vErrs validator.ValidationErrors
			if errors.As(err, &vErrs) {
				flds = append(flds, core.TranslateFieldErrors(vErrs)...)
			} else {
				flds = append(flds, core.FieldError{Field: def.Name, Error: err.Error()})
			}
		}
	}
	for _, check := range def.Checks {
		flds = append(flds, check(doc)...)
	}
	return flds
}
