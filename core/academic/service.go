package academic

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/silabo/core"
)

var ErrNotFound = errors.New("academic year not found")

type (
	Repository interface {
		CreateAcademicYear(y AcademicYear) (AcademicYear, error)
		GetAcademicYearByID(id string) (AcademicYear, error)
		GetActiveAcademicYear() (AcademicYear, error)
		// QueryAllAcademicYears returns years newest first.
		QueryAllAcademicYears() ([]AcademicYear, error)
		UpdateAcademicYear(y AcademicYear) (AcademicYear, error)
		DeleteAcademicYearsByID(ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ny NewAcademicYear) (AcademicYear, error) {
	if err := ny.Validate(); err != nil {
		return AcademicYear{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateAcademicYear(AcademicYear{
		Name:      ny.Name,
		StartDate: ny.StartDate,
		EndDate:   ny.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) QueryAll() ([]AcademicYear, error) {
	return svc.repo.QueryAllAcademicYears()
}

func (svc *Service) GetByID(id string) (AcademicYear, error) {
	return svc.repo.GetAcademicYearByID(id)
}

func (svc *Service) GetActive() (AcademicYear, error) {
	return svc.repo.GetActiveAcademicYear()
}

// Activate makes the given year the active one, deactivating the current
// active year first so at most one is ever active.
func (svc *Service) Activate(id string) (AcademicYear, error) {
	y, err := svc.repo.GetAcademicYearByID(id)
	if err != nil {
		return AcademicYear{}, err
	}
	if y.IsActive {
		return y, nil
	}

	if active, err := svc.repo.GetActiveAcademicYear(); err == nil {
		active.IsActive = false
		active.UpdatedAt = time.Now().UTC()
		if _, err := svc.repo.UpdateAcademicYear(active); err != nil {
			return AcademicYear{}, err
		}
	} else if err != ErrNotFound {
		return AcademicYear{}, err
	}

	y.IsActive = true
	y.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAcademicYear(y)
}

func (svc *Service) Deactivate(id string) (AcademicYear, error) {
	y, err := svc.repo.GetAcademicYearByID(id)
	if err != nil {
		return AcademicYear{}, err
	}
	if !y.IsActive {
		return y, nil
	}
	y.IsActive = false
	y.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAcademicYear(y)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteAcademicYearsByID(ids...)
}

// YearsKey is the cache key for the academic years listing.
const YearsKey = "academic:years"

// YearBoard is the client-side controller over the years listing. The
// active-year toggle flips speculatively and is rolled back by snapshot
// restore when the call fails.
type YearBoard struct {
	svc   *Service
	cache core.Cache
}

func NewYearBoard(svc *Service, cache core.Cache) *YearBoard {
	return &YearBoard{svc: svc, cache: cache}
}

func (b *YearBoard) Load() ([]AcademicYear, error) {
	if v, err := b.cache.Read(YearsKey); err == nil {
		return v.([]AcademicYear), nil
	} else if err != core.ErrCacheMiss {
		return nil, err
	}

	years, err := b.svc.QueryAll()
	if err != nil {
		return nil, err
	}
	if err := b.cache.Write(YearsKey, years); err != nil {
		return nil, err
	}
	return years, nil
}

// SetActive toggles which year is active. The speculative rewrite keeps
// the single-active invariant locally: activating one year deactivates
// the rest in the same pass.
func (b *YearBoard) SetActive(ctx context.Context, id string, active bool) error {
	m := core.Mutation{
		Cache: b.cache,
		Keys:  []string{YearsKey},
		Apply: func(cache core.Cache) error {
			v, err := cache.Read(YearsKey)
			if err != nil {
				if err == core.ErrCacheMiss {
					return nil
				}
				return err
			}
			years := v.([]AcademicYear)
			for i := range years {
				switch {
				case years[i].ID == id:
					years[i].IsActive = active
				case active:
					years[i].IsActive = false
				}
			}
			return cache.Write(YearsKey, years)
		},
		Call: func(context.Context) error {
			var err error
			if active {
				_, err = b.svc.Activate(id)
			} else {
				_, err = b.svc.Deactivate(id)
			}
			return err
		},
		Refresh: func(cache core.Cache) error {
			years, err := b.svc.QueryAll()
			if err != nil {
				return err
			}
			return cache.Write(YearsKey, years)
		},
	}
	return m.Run(ctx)
}
