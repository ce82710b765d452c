package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sparshv/projportal/core/load"
)

type loadRow struct {
	ID                 string `db:"id"`
	FacultyID          string `db:"faculty_id"`
	FacultyName        string `db:"faculty_name"`
	Year               int    `db:"year"`
	Semester           int    `db:"semester"`
	TotalGroups        int    `db:"total_groups"`
	TotalStudents      int    `db:"total_students"`
	MaxGroupsAllowed   int    `db:"max_groups_allowed"`
	MaxStudentsAllowed int    `db:"max_students_allowed"`
}

func (r loadRow) unpack() load.FacultyLoad {
	return load.FacultyLoad(r)
}

type loadRepository struct {
	db *sqlx.DB
}

var _ load.Repository = (*loadRepository)(nil) // interface compliance check

func NewLoadRepository(db *sqlx.DB) *loadRepository {
	return &loadRepository{db: db}
}

func (repo loadRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return load.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo loadRepository) GetLoad(ctx context.Context, facultyID string, year, semester int) (load.FacultyLoad, error) {
	var row loadRow
	q := `SELECT * FROM faculty_load WHERE faculty_id = $1 AND year = $2 AND semester = $3`
	if err := repo.db.GetContext(ctx, &row, q, facultyID, year, semester); err != nil {
		return load.FacultyLoad{}, repo.trapNoRowsErr(err, "finding faculty load")
	}
	return row.unpack(), nil
}

func (repo loadRepository) QueryLoads(ctx context.Context, filter load.QueryFilter) ([]load.FacultyLoad, error) {
	var where []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.FacultyID != "" {
		where = append(where, "faculty_id = "+arg(filter.FacultyID))
	}
	if filter.Semester != 0 {
		where = append(where, "semester = "+arg(filter.Semester))
	}
	if filter.Year != 0 {
		where = append(where, "year = "+arg(filter.Year))
	}

	q := `SELECT * FROM faculty_load`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY faculty_name"

	var rows []loadRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying faculty loads")
	}
	loads := make([]load.FacultyLoad, 0, len(rows))
	for _, r := range rows {
		loads = append(loads, r.unpack())
	}
	return loads, nil
}

func (repo loadRepository) UpsertLoadMaxima(ctx context.Context, fl load.FacultyLoad) (load.FacultyLoad, error) {
	fl.ID = uuid.New().String()
	q := `
INSERT INTO faculty_load (id, faculty_id, faculty_name, year, semester,
                          total_groups, total_students, max_groups_allowed, max_students_allowed)
VALUES ($1, $2, $3, $4, $5, 0, 0, $6, $7)
ON CONFLICT (faculty_id, year, semester) DO UPDATE
    SET max_groups_allowed = EXCLUDED.max_groups_allowed,
        max_students_allowed = EXCLUDED.max_students_allowed
RETURNING *`
	var row loadRow
	err := repo.db.GetContext(ctx, &row, q,
		fl.ID, fl.FacultyID, fl.FacultyName, fl.Year, fl.Semester, fl.MaxGroupsAllowed, fl.MaxStudentsAllowed)
	if err != nil {
		return load.FacultyLoad{}, errors.Wrap(err, "upserting faculty load")
	}
	return row.unpack(), nil
}

func (repo loadRepository) UpdateAllMaxima(ctx context.Context, semester, year, maxGroups, maxStudents int) error {
	q := `UPDATE faculty_load SET max_groups_allowed = $3, max_students_allowed = $4 WHERE semester = $1 AND year = $2`
	if _, err := repo.db.ExecContext(ctx, q, semester, year, maxGroups, maxStudents); err != nil {
		return errors.Wrap(err, "updating faculty load maxima")
	}
	return nil
}

func (repo loadRepository) BumpLoad(ctx context.Context, facultyID string, year, semester, teamSize int) (load.FacultyLoad, error) {
	q := `
UPDATE faculty_load
SET total_groups   = total_groups + 1,
    total_students = total_students + $4
WHERE faculty_id = $1 AND year = $2 AND semester = $3
RETURNING *`
	var row loadRow
	if err := repo.db.GetContext(ctx, &row, q, facultyID, year, semester, teamSize); err != nil {
		return load.FacultyLoad{}, repo.trapNoRowsErr(err, "bumping faculty load")
	}
	return row.unpack(), nil
}
