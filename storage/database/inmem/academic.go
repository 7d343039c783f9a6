package inmemdb

import (
	"sort"

	"github.com/trezcool/silabo/core/academic"
)

type academicYearRepository struct {
	db *academicYearTable
}

func NewAcademicYearRepository(db *DB) academic.Repository {
	return &academicYearRepository{db: db.academicYear}
}

func (repo *academicYearRepository) CreateAcademicYear(y academic.AcademicYear) (academic.AcademicYear, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	y.ID = newPK()
	repo.db.table[y.ID] = &y
	return y, nil
}

func (repo *academicYearRepository) GetAcademicYearByID(id string) (academic.AcademicYear, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if y, ok := repo.db.table[id]; ok {
		return *y, nil
	}
	return academic.AcademicYear{}, academic.ErrNotFound
}

func (repo *academicYearRepository) GetActiveAcademicYear() (academic.AcademicYear, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, y := range repo.db.table {
		if y.IsActive {
			return *y, nil
		}
	}
	return academic.AcademicYear{}, academic.ErrNotFound
}

func (repo *academicYearRepository) QueryAllAcademicYears() ([]academic.AcademicYear, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	years := make([]academic.AcademicYear, 0, len(repo.db.table))
	for _, y := range repo.db.table {
		years = append(years, *y)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].StartDate.After(years[j].StartDate) })
	return years, nil
}

func (repo *academicYearRepository) UpdateAcademicYear(y academic.AcademicYear) (academic.AcademicYear, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[y.ID]; !ok {
		return academic.AcademicYear{}, academic.ErrNotFound
	}
	repo.db.table[y.ID] = &y
	return y, nil
}

func (repo *academicYearRepository) DeleteAcademicYearsByID(ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
