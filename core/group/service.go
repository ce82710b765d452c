package group

import (
	"context"
	"errors"

	"github.com/sparshv/projportal/core/load"
	"github.com/sparshv/projportal/core/user"
)

var (
	// errors
	ErrNotFound  = errors.New("group setting not found")
	ErrNoFaculty = errors.New("no faculty members found")
)

type (
	Repository interface {
		CreateSetting(ctx context.Context, s Setting) (Setting, error)
		GetSettingByID(ctx context.Context, id string) (Setting, error)
		// GetSettingFor returns the policy of (semester, year); ErrNotFound if unset.
		GetSettingFor(ctx context.Context, semester, year int) (Setting, error)
		QueryAllSettings(ctx context.Context) ([]Setting, error)
		UpdateSetting(ctx context.Context, s Setting) (Setting, error)
		DeleteSetting(ctx context.Context, id string) error
	}

	Service struct {
		repo  Repository
		loads load.Repository
		users user.Repository
	}
)

func NewService(repo Repository, loads load.Repository, users user.Repository) Service {
	return Service{repo: repo, loads: loads, users: users}
}

// Save persists a new policy and initializes a FacultyLoad row for every
// faculty member in the directory, so later accepts have a row to charge.
func (svc Service) Save(ctx context.Context, ns NewSetting) (Setting, error) {
	s := Setting{
		Semester:   ns.Semester,
		Year:       ns.Year,
		Batch:      Batch(ns.Semester, ns.Year),
		MaxGroups:  ns.MaxGroups,
		MaxMembers: ns.MaxMembers,
		OpenWindow: ns.OpenWindow,
		Deadline:   ns.Deadline,
	}
	s, err := svc.repo.CreateSetting(ctx, s)
	if err != nil {
		return Setting{}, err
	}
	return s, svc.initLoads(ctx, s)
}

func (svc Service) initLoads(ctx context.Context, s Setting) error {
	faculties, err := svc.users.QueryUsers(ctx, &user.QueryFilter{Roles: []string{user.RoleFaculty}})
	if err != nil {
		return err
	}
	if len(faculties) == 0 {
		return ErrNoFaculty
	}
	for _, f := range faculties {
		fl := load.FacultyLoad{
			FacultyID:          f.ID,
			FacultyName:        f.Name,
			Year:               s.Year,
			Semester:           s.Semester,
			MaxGroupsAllowed:   s.MaxGroups,
			MaxStudentsAllowed: s.MaxMembers,
		}
		if _, err := svc.loads.UpsertLoadMaxima(ctx, fl); err != nil {
			return err
		}
	}
	return nil
}

// Update rewrites the policy and propagates the new maxima to every
// FacultyLoad row of the same (semester, year).
func (svc Service) Update(ctx context.Context, id string, ns NewSetting) (Setting, error) {
	s := Setting{
		ID:         id,
		Semester:   ns.Semester,
		Year:       ns.Year,
		Batch:      Batch(ns.Semester, ns.Year),
		MaxGroups:  ns.MaxGroups,
		MaxMembers: ns.MaxMembers,
		OpenWindow: ns.OpenWindow,
		Deadline:   ns.Deadline,
	}
	s, err := svc.repo.UpdateSetting(ctx, s)
	if err != nil {
		return Setting{}, err
	}
	err = svc.loads.UpdateAllMaxima(ctx, s.Semester, s.Year, s.MaxGroups, s.MaxMembers)
	return s, err
}

// Delete removes the policy. FacultyLoad rows are kept; they are historical
// records, not children of the policy.
func (svc Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSetting(ctx, id)
}

func (svc Service) QueryAll(ctx context.Context) ([]Setting, error) {
	return svc.repo.QueryAllSettings(ctx)
}

func (svc Service) GetFor(ctx context.Context, semester, year int) (Setting, error) {
	return svc.repo.GetSettingFor(ctx, semester, year)
}
