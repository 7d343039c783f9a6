package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/silabo/core/academic"
)

type academicYearRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r academicYearRow) year() academic.AcademicYear {
	return academic.AcademicYear(r)
}

type academicYearRepository struct {
	db *sqlx.DB
}

func NewAcademicYearRepository(db *sqlx.DB) academic.Repository {
	return &academicYearRepository{db: db}
}

func (repo *academicYearRepository) CreateAcademicYear(y academic.AcademicYear) (academic.AcademicYear, error) {
	q := `
		INSERT INTO academic_years (name, start_date, end_date, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.Get(&y.ID, q, y.Name, y.StartDate, y.EndDate, y.IsActive, y.CreatedAt, y.UpdatedAt)
	if err != nil {
		return academic.AcademicYear{}, errors.Wrap(err, "creating academic year")
	}
	return y, nil
}

func (repo *academicYearRepository) GetAcademicYearByID(id string) (academic.AcademicYear, error) {
	return repo.getBy(`id = $1`, id)
}

func (repo *academicYearRepository) GetActiveAcademicYear() (academic.AcademicYear, error) {
	return repo.getBy(`is_active = $1`, true)
}

func (repo *academicYearRepository) getBy(cond string, args ...interface{}) (academic.AcademicYear, error) {
	var row academicYearRow
	err := repo.db.Get(&row, `SELECT * FROM academic_years WHERE `+cond, args...)
	if err == sql.ErrNoRows {
		return academic.AcademicYear{}, academic.ErrNotFound
	}
	if err != nil {
		return academic.AcademicYear{}, errors.Wrap(err, "getting academic year")
	}
	return row.year(), nil
}

func (repo *academicYearRepository) QueryAllAcademicYears() ([]academic.AcademicYear, error) {
	var rows []academicYearRow
	if err := repo.db.Select(&rows, `SELECT * FROM academic_years ORDER BY start_date DESC`); err != nil {
		return nil, errors.Wrap(err, "querying academic years")
	}

	years := make([]academic.AcademicYear, 0, len(rows))
	for _, row := range rows {
		years = append(years, row.year())
	}
	return years, nil
}

func (repo *academicYearRepository) UpdateAcademicYear(y academic.AcademicYear) (academic.AcademicYear, error) {
	q := `
		UPDATE academic_years
		SET name = $2, start_date = $3, end_date = $4, is_active = $5, updated_at = $6
		WHERE id = $1`
	res, err := repo.db.Exec(q, y.ID, y.Name, y.StartDate, y.EndDate, y.IsActive, y.UpdatedAt)
	if err != nil {
		return academic.AcademicYear{}, errors.Wrap(err, "updating academic year")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academic.AcademicYear{}, academic.ErrNotFound
	}
	return y, nil
}

func (repo *academicYearRepository) DeleteAcademicYearsByID(ids ...string) error {
	if _, err := repo.db.Exec(`DELETE FROM academic_years WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting academic years")
	}
	return nil
}
