package academic

import (
	"time"

	"github.com/trezcool/silabo/core"
)

type (
	// AcademicYear is a teaching period; at most one is active at a time.
	AcademicYear struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
		IsActive  bool      `json:"is_active"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	NewAcademicYear struct {
		Name      string    `json:"name" validate:"required,yearname"`
		StartDate time.Time `json:"start_date" validate:"required"`
		EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	}
)

func (ny *NewAcademicYear) Validate() error {
	ny.Name = core.CleanString(ny.Name)
	return core.Validate.Struct(ny)
}
