package dummydb

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/sparshv/projportal/core"
	"github.com/sparshv/projportal/core/group"
)

var errSettingExists = errors.New("a group setting already exists for this semester and year")

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) CreateSetting(ctx context.Context, s group.Setting) (group.Setting, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.settings {
		if other.Semester == s.Semester && other.Year == s.Year {
			return group.Setting{}, core.NewConflictError(errSettingExists)
		}
	}

	s.ID = uuid.New().String()
	repo.db.settings[s.ID] = &s
	return s, nil
}

func (repo *groupRepository) GetSettingByID(ctx context.Context, id string) (group.Setting, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.settings[id]; ok {
		return *s, nil
	}
	return group.Setting{}, group.ErrNotFound
}

func (repo *groupRepository) GetSettingFor(ctx context.Context, semester, year int) (group.Setting, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, s := range repo.db.settings {
		if s.Semester == semester && s.Year == year {
			return *s, nil
		}
	}
	return group.Setting{}, group.ErrNotFound
}

func (repo *groupRepository) QueryAllSettings(ctx context.Context) ([]group.Setting, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	settings := make([]group.Setting, 0, len(repo.db.settings))
	for _, s := range repo.db.settings {
		settings = append(settings, *s)
	}
	sort.Slice(settings, func(i, j int) bool {
		if settings[i].Year != settings[j].Year {
			return settings[i].Year > settings[j].Year
		}
		return settings[i].Semester < settings[j].Semester
	})
	return settings, nil
}

func (repo *groupRepository) UpdateSetting(ctx context.Context, s group.Setting) (group.Setting, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.settings[s.ID]
	if !ok {
		return group.Setting{}, group.ErrNotFound
	}
	for _, other := range repo.db.settings {
		if other.ID != s.ID && other.Semester == s.Semester && other.Year == s.Year {
			return group.Setting{}, core.NewConflictError(errSettingExists)
		}
	}

	*orig = s
	return *orig, nil
}

func (repo *groupRepository) DeleteSetting(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	delete(repo.db.settings, id)
	return nil
}
