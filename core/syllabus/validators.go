package syllabus

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/silabo/core"
)

var (
	courseCodeTag   = "coursecode"
	courseCodeText  = "must be a course code like SE301 or MATH1101"
	courseCodeRegex = regexp.MustCompile(`^[A-Z]{2,5} ?[0-9]{3,4}$`)

	minOutcomes = 3

	// weightSumTolerance absorbs float drift when summing assessment
	// weights; anything farther from 100 than this is a real error.
	weightSumTolerance = 0.01
)

func init() {
	_ = core.Validate.RegisterValidation(courseCodeTag, courseCodeValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, courseCodeTag, courseCodeText)
}

func courseCodeValidation(fl validator.FieldLevel) bool {
	return courseCodeRegex.MatchString(fl.Field().String())
}

// Cross-field checks. These are domain invariants layered on top of the
// per-field schema validation; each returns the failing fields, empty when
// the document passes.

// CrossFieldCheck inspects relationships between document fields that
// per-field tags cannot express.
type CrossFieldCheck func(s *Syllabus) []core.FieldError

// checkMinOutcomes enforces the minimum learning outcome cardinality.
func checkMinOutcomes(s *Syllabus) []core.FieldError {
	if len(s.Outcomes) < minOutcomes {
		return []core.FieldError{{
			Field: "outcomes",
			Error: fmt.Sprintf("at least %d learning outcomes are required", minOutcomes),
		}}
	}
	return nil
}

// checkWeightSum enforces that assessment weights sum to exactly 100%,
// within tolerance. The message states the delta.
func checkWeightSum(s *Syllabus) []core.FieldError {
	var sum float64
	for _, a := range s.Assessments {
		sum += a.Weight
	}
	delta := 100 - sum
	switch {
	case delta > weightSumTolerance:
		return []core.FieldError{{
			Field: "assessments",
			Error: fmt.Sprintf("assessment weights must sum to 100%%: need %.1f%% more", delta),
		}}
	case -delta > weightSumTolerance:
		return []core.FieldError{{
			Field: "assessments",
			Error: fmt.Sprintf("assessment weights must sum to 100%%: %.1f%% over", -delta),
		}}
	}
	return nil
}

// checkTopicCoverage enforces that every learning outcome is covered by at
// least one weekly topic.
func checkTopicCoverage(s *Syllabus) []core.FieldError {
	return checkOutcomeCoverage(s, "topics", "weekly topic", func() map[string]bool {
		covered := make(map[string]bool)
		for _, t := range s.Topics {
			for _, oid := range t.OutcomeIDs {
				covered[oid] = true
			}
		}
		return covered
	})
}

// checkAssessmentCoverage enforces that every learning outcome is assessed
// by at least one assessment.
func checkAssessmentCoverage(s *Syllabus) []core.FieldError {
	return checkOutcomeCoverage(s, "assessments", "assessment", func() map[string]bool {
		covered := make(map[string]bool)
		for _, a := range s.Assessments {
			for _, oid := range a.OutcomeIDs {
				covered[oid] = true
			}
		}
		return covered
	})
}

func checkOutcomeCoverage(s *Syllabus, field, noun string, coveredFn func() map[string]bool) []core.FieldError {
	covered := coveredFn()
	var flds []core.FieldError
	for _, o := range s.Outcomes {
		if !covered[o.ID] {
			flds = append(flds, core.FieldError{
				Field: field,
				Error: fmt.Sprintf("learning outcome %s is not covered by any %s", o.Code, noun),
			})
		}
	}
	return flds
}

// checkMinReferences requires at least one reference entry.
func checkMinReferences(s *Syllabus) []core.FieldError {
	if len(s.References) == 0 {
		return []core.FieldError{{Field: "references", Error: "at least 1 reference is required"}}
	}
	return nil
}
