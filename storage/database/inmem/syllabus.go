package inmemdb

import (
	"sort"
	"strings"

	"github.com/trezcool/silabo/core/syllabus"
)

type syllabusRepository struct {
	db *syllabusTable
}

func NewSyllabusRepository(db *DB) syllabus.Repository {
	return &syllabusRepository{db: db.syllabus}
}

func (repo *syllabusRepository) query() []syllabus.Syllabus {
	all := make([]syllabus.Syllabus, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all
}

func (repo *syllabusRepository) CheckCourseUniqueness(courseCode, academicYearID string, excluded ...syllabus.Syllabus) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excl := make(map[string]bool, len(excluded))
	for _, s := range excluded {
		excl[s.ID] = true
	}

	for _, s := range repo.query() {
		if excl[s.ID] {
			continue
		}
		if s.CourseCode == courseCode && s.AcademicYearID == academicYearID {
			return syllabus.ErrCourseExists
		}
	}
	return nil
}

func (repo *syllabusRepository) CreateSyllabus(s syllabus.Syllabus) (syllabus.Syllabus, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = newPK()
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *syllabusRepository) GetSyllabusByID(id string) (syllabus.Syllabus, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return syllabus.Syllabus{}, syllabus.ErrNotFound
}

func (repo *syllabusRepository) FilterSyllabi(filter syllabus.QueryFilter) ([]syllabus.Syllabus, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	filter.Clean()
	search := strings.ToLower(filter.Search)

	var res []syllabus.Syllabus
	for _, s := range repo.query() {
		if search != "" &&
			!strings.Contains(strings.ToLower(s.CourseCode), search) &&
			!strings.Contains(strings.ToLower(s.CourseTitle), search) {
			continue
		}
		if filter.AcademicYearID != "" && s.AcademicYearID != filter.AcademicYearID {
			continue
		}
		if filter.LecturerID != "" && s.LecturerID != filter.LecturerID {
			continue
		}
		if filter.Statuses != nil && !hasStatus(s, filter.Statuses) {
			continue
		}
		res = append(res, s)
	}
	return res, nil
}

func (repo *syllabusRepository) UpdateSyllabus(s syllabus.Syllabus) (syllabus.Syllabus, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[s.ID]; !ok {
		return syllabus.Syllabus{}, syllabus.ErrNotFound
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *syllabusRepository) DeleteSyllabiByID(ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func hasStatus(s syllabus.Syllabus, statuses []syllabus.Status) bool {
	for _, st := range statuses {
		if s.Status == st {
			return true
		}
	}
	return false
}
