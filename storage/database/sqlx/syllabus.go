package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/silabo/core/syllabus"
)

// syllabusRow flattens the document for the syllabi table; the nested
// collections live in JSONB columns.
type syllabusRow struct {
	ID             string          `db:"id"`
	AcademicYearID string          `db:"academic_year_id"`
	CourseCode     string          `db:"course_code"`
	CourseTitle    string          `db:"course_title"`
	Credits        int             `db:"credits"`
	Semester       int             `db:"semester"`
	Summary        string          `db:"summary"`
	LecturerID     string          `db:"lecturer_id"`
	LecturerName   string          `db:"lecturer_name"`
	Status         string          `db:"status"`
	Version        int             `db:"version"`
	Outcomes       json.RawMessage `db:"outcomes"`
	Topics         json.RawMessage `db:"topics"`
	References     json.RawMessage `db:"refs"`
	Assessments    json.RawMessage `db:"assessments"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (r syllabusRow) syllabus() (syllabus.Syllabus, error) {
	s := syllabus.Syllabus{
		ID:             r.ID,
		AcademicYearID: r.AcademicYearID,
		CourseCode:     r.CourseCode,
		CourseTitle:    r.CourseTitle,
		Credits:        r.Credits,
		Semester:       r.Semester,
		Summary:        r.Summary,
		LecturerID:     r.LecturerID,
		LecturerName:   r.LecturerName,
		Status:         syllabus.Status(r.Status),
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	for _, col := range []struct {
		raw json.RawMessage
		dst interface{}
	}{
		{r.Outcomes, &s.Outcomes},
		{r.Topics, &s.Topics},
		{r.References, &s.References},
		{r.Assessments, &s.Assessments},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return syllabus.Syllabus{}, errors.Wrap(err, "decoding syllabus collections")
		}
	}
	return s, nil
}

func marshalCol(v interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding syllabus collections")
	}
	return raw, nil
}

type syllabusRepository struct {
	db *sqlx.DB
}

func NewSyllabusRepository(db *sqlx.DB) syllabus.Repository {
	return &syllabusRepository{db: db}
}

func (repo *syllabusRepository) CheckCourseUniqueness(courseCode, academicYearID string, excluded ...syllabus.Syllabus) error {
	exclIDs := make([]string, 0, len(excluded))
	for _, s := range excluded {
		exclIDs = append(exclIDs, s.ID)
	}

	var exists bool
	q := `
		SELECT EXISTS (
			SELECT 1 FROM syllabi
			WHERE course_code = $1 AND academic_year_id = $2 AND id != ALL($3)
		)`
	if err := repo.db.Get(&exists, q, courseCode, academicYearID, pq.Array(exclIDs)); err != nil {
		return errors.Wrap(err, "checking course uniqueness")
	}
	if exists {
		return syllabus.ErrCourseExists
	}
	return nil
}

func (repo *syllabusRepository) CreateSyllabus(s syllabus.Syllabus) (syllabus.Syllabus, error) {
	cols, err := marshalCols(s)
	if err != nil {
		return syllabus.Syllabus{}, err
	}

	q := `
		INSERT INTO syllabi (
			academic_year_id, course_code, course_title, credits, semester, summary,
			lecturer_id, lecturer_name, status, version,
			outcomes, topics, refs, assessments, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`
	err = repo.db.Get(
		&s.ID, q,
		s.AcademicYearID, s.CourseCode, s.CourseTitle, s.Credits, s.Semester, s.Summary,
		s.LecturerID, s.LecturerName, string(s.Status), s.Version,
		cols[0], cols[1], cols[2], cols[3], s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return syllabus.Syllabus{}, errors.Wrap(err, "creating syllabus")
	}
	return s, nil
}

func (repo *syllabusRepository) GetSyllabusByID(id string) (syllabus.Syllabus, error) {
	var row syllabusRow
	err := repo.db.Get(&row, `SELECT * FROM syllabi WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return syllabus.Syllabus{}, syllabus.ErrNotFound
	}
	if err != nil {
		return syllabus.Syllabus{}, errors.Wrap(err, "getting syllabus")
	}
	return row.syllabus()
}

func (repo *syllabusRepository) FilterSyllabi(filter syllabus.QueryFilter) ([]syllabus.Syllabus, error) {
	filter.Clean()

	conds := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, `(course_code ILIKE `+p+` OR course_title ILIKE `+p+`)`)
	}
	if filter.AcademicYearID != "" {
		conds = append(conds, `academic_year_id = `+arg(filter.AcademicYearID))
	}
	if filter.LecturerID != "" {
		conds = append(conds, `lecturer_id = `+arg(filter.LecturerID))
	}
	if filter.Statuses != nil {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		conds = append(conds, `status = ANY(`+arg(pq.Array(statuses))+`)`)
	}

	q := `SELECT * FROM syllabi`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at`

	var rows []syllabusRow
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering syllabi")
	}

	res := make([]syllabus.Syllabus, 0, len(rows))
	for _, row := range rows {
		s, err := row.syllabus()
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}

func (repo *syllabusRepository) UpdateSyllabus(s syllabus.Syllabus) (syllabus.Syllabus, error) {
	cols, err := marshalCols(s)
	if err != nil {
		return syllabus.Syllabus{}, err
	}

	q := `
		UPDATE syllabi
		SET academic_year_id = $2, course_code = $3, course_title = $4, credits = $5,
		    semester = $6, summary = $7, lecturer_id = $8, lecturer_name = $9,
		    status = $10, version = $11, outcomes = $12, topics = $13, refs = $14,
		    assessments = $15, updated_at = $16
		WHERE id = $1`
	res, err := repo.db.Exec(
		q, s.ID,
		s.AcademicYearID, s.CourseCode, s.CourseTitle, s.Credits,
		s.Semester, s.Summary, s.LecturerID, s.LecturerName,
		string(s.Status), s.Version, cols[0], cols[1], cols[2],
		cols[3], s.UpdatedAt,
	)
	if err != nil {
		return syllabus.Syllabus{}, errors.Wrap(err, "updating syllabus")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return syllabus.Syllabus{}, syllabus.ErrNotFound
	}
	return s, nil
}

func (repo *syllabusRepository) DeleteSyllabiByID(ids ...string) error {
	if _, err := repo.db.Exec(`DELETE FROM syllabi WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting syllabi")
	}
	return nil
}

func marshalCols(s syllabus.Syllabus) ([4]json.RawMessage, error) {
	var cols [4]json.RawMessage
	for i, v := range []interface{}{s.Outcomes, s.Topics, s.References, s.Assessments} {
		raw, err := marshalCol(v)
		if err != nil {
			return cols, err
		}
		cols[i] = raw
	}
	return cols, nil
}
