package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/sparshv/projportal/core/load"
)

type loadRepository struct {
	db *DB
}

var _ load.Repository = (*loadRepository)(nil) // interface compliance check

func NewLoadRepository(db *DB) load.Repository {
	return &loadRepository{db: db}
}

// find is called with the lock held.
func (repo *loadRepository) find(facultyID string, year, semester int) *load.FacultyLoad {
	for _, fl := range repo.db.loads {
		if fl.FacultyID == facultyID && fl.Year == year && fl.Semester == semester {
			return fl
		}
	}
	return nil
}

func (repo *loadRepository) GetLoad(ctx context.Context, facultyID string, year, semester int) (load.FacultyLoad, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if fl := repo.find(facultyID, year, semester); fl != nil {
		return *fl, nil
	}
	return load.FacultyLoad{}, load.ErrNotFound
}

func (repo *loadRepository) QueryLoads(ctx context.Context, filter load.QueryFilter) ([]load.FacultyLoad, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var loads []load.FacultyLoad
	for _, fl := range repo.db.loads {
		if filter.FacultyID != "" && fl.FacultyID != filter.FacultyID {
			continue
		}
		if filter.Semester != 0 && fl.Semester != filter.Semester {
			continue
		}
		if filter.Year != 0 && fl.Year != filter.Year {
			continue
		}
		loads = append(loads, *fl)
	}
	sort.Slice(loads, func(i, j int) bool { return loads[i].FacultyName < loads[j].FacultyName })
	return loads, nil
}

func (repo *loadRepository) UpsertLoadMaxima(ctx context.Context, fl load.FacultyLoad) (load.FacultyLoad, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if orig := repo.find(fl.FacultyID, fl.Year, fl.Semester); orig != nil {
		orig.MaxGroupsAllowed = fl.MaxGroupsAllowed
		orig.MaxStudentsAllowed = fl.MaxStudentsAllowed
		return *orig, nil
	}

	fl.ID = uuid.New().String()
	fl.TotalGroups = 0
	fl.TotalStudents = 0
	repo.db.loads[fl.ID] = &fl
	return fl, nil
}

func (repo *loadRepository) UpdateAllMaxima(ctx context.Context, semester, year, maxGroups, maxStudents int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, fl := range repo.db.loads {
		if fl.Semester == semester && fl.Year == year {
			fl.MaxGroupsAllowed = maxGroups
			fl.MaxStudentsAllowed = maxStudents
		}
	}
	return nil
}

func (repo *loadRepository) BumpLoad(ctx context.Context, facultyID string, year, semester, teamSize int) (load.FacultyLoad, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	fl := repo.find(facultyID, year, semester)
	if fl == nil {
		return load.FacultyLoad{}, load.ErrNotFound
	}
	fl.TotalGroups++
	fl.TotalStudents += teamSize
	return *fl, nil
}
