package academic

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/silabo/core"
)

var (
	yearNameTag   = "yearname"
	yearNameText  = "must be an academic year like 2025/2026"
	yearNameRegex = regexp.MustCompile(`^[0-9]{4}/[0-9]{4}$`)
)

func init() {
	_ = core.Validate.RegisterValidation(yearNameTag, yearNameValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, yearNameTag, yearNameText)
}

func yearNameValidation(fl validator.FieldLevel) bool {
	return yearNameRegex.MatchString(fl.Field().String())
}
