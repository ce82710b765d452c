package load

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound = errors.New("faculty load record not found")
)

type (
	Repository interface {
		GetLoad(ctx context.Context, facultyID string, year, semester int) (FacultyLoad, error)
		QueryLoads(ctx context.Context, filter QueryFilter) ([]FacultyLoad, error)
		// UpsertLoadMaxima creates a zeroed row for (faculty, year, semester)
		// or updates the maxima on the existing one.
		UpsertLoadMaxima(ctx context.Context, fl FacultyLoad) (FacultyLoad, error)
		// UpdateAllMaxima propagates new maxima to every row of (semester, year).
		UpdateAllMaxima(ctx context.Context, semester, year, maxGroups, maxStudents int) error
		// BumpLoad atomically adds one group and teamSize students to the row
		// for (faculty, year, semester); ErrNotFound if the row is absent.
		BumpLoad(ctx context.Context, facultyID string, year, semester, teamSize int) (FacultyLoad, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) Service {
	return Service{repo: repo}
}

func (svc Service) Get(ctx context.Context, facultyID string, year, semester int) (FacultyLoad, error) {
	return svc.repo.GetLoad(ctx, facultyID, year, semester)
}

// Query returns the matching rows (zero or one per faculty) so clients can
// pre-validate capacity before allowing a submission.
func (svc Service) Query(ctx context.Context, filter QueryFilter) ([]FacultyLoad, error) {
	return svc.repo.QueryLoads(ctx, filter)
}

// Bump charges one group of b.Value students to the faculty's load.
// The accept workflow charges load atomically on its own; this operation
// exists for manual administrative correction.
func (svc Service) Bump(ctx context.Context, b BumpLoad) (FacultyLoad, error) {
	return svc.repo.BumpLoad(ctx, b.FacultyID, b.Year, b.Semester, b.Value)
}
