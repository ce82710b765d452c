package sqlxrepos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"

	"github.com/sparshv/projportal/core"
	"github.com/sparshv/projportal/core/group"
)

var errSettingExists = errors.New("a group setting already exists for this semester and year")

type settingRow struct {
	ID         string `db:"id"`
	Semester   int    `db:"semester"`
	Year       int    `db:"year"`
	Batch      int    `db:"batch"`
	MaxGroups  int    `db:"max_groups"`
	MaxMembers int    `db:"max_members"`
	OpenWindow bool   `db:"open_window"`
	Deadline   string `db:"deadline"`
}

func (r settingRow) unpack() group.Setting {
	return group.Setting(r)
}

type groupRepository struct {
	db *sqlx.DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *sqlx.DB) *groupRepository {
	return &groupRepository{db: db}
}

func (repo groupRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return group.ErrNotFound
	}
	return pkgerrors.Wrap(err, msg)
}

func (repo groupRepository) CreateSetting(ctx context.Context, s group.Setting) (group.Setting, error) {
	s.ID = uuid.New().String()
	q := `
INSERT INTO group_setting (id, semester, year, batch, max_groups, max_members, open_window, deadline)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(ctx, q,
		s.ID, s.Semester, s.Year, s.Batch, s.MaxGroups, s.MaxMembers, s.OpenWindow, s.Deadline)
	if err != nil {
		if isUniqueViolation(err) {
			return group.Setting{}, core.NewConflictError(errSettingExists)
		}
		return group.Setting{}, pkgerrors.Wrap(err, "inserting group setting")
	}
	return s, nil
}

func (repo groupRepository) GetSettingByID(ctx context.Context, id string) (group.Setting, error) {
	if _, err := uuid.Parse(id); err != nil {
		return group.Setting{}, group.ErrNotFound
	}
	var row settingRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM group_setting WHERE id = $1`, id); err != nil {
		return group.Setting{}, repo.trapNoRowsErr(err, "finding group setting by ID")
	}
	return row.unpack(), nil
}

func (repo groupRepository) GetSettingFor(ctx context.Context, semester, year int) (group.Setting, error) {
	var row settingRow
	q := `SELECT * FROM group_setting WHERE semester = $1 AND year = $2`
	if err := repo.db.GetContext(ctx, &row, q, semester, year); err != nil {
		return group.Setting{}, repo.trapNoRowsErr(err, "finding group setting")
	}
	return row.unpack(), nil
}

func (repo groupRepository) QueryAllSettings(ctx context.Context) ([]group.Setting, error) {
	var rows []settingRow
	q := `SELECT * FROM group_setting ORDER BY year DESC, semester`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, pkgerrors.Wrap(err, "querying group settings")
	}
	settings := make([]group.Setting, 0, len(rows))
	for _, r := range rows {
		settings = append(settings, r.unpack())
	}
	return settings, nil
}

func (repo groupRepository) UpdateSetting(ctx context.Context, s group.Setting) (group.Setting, error) {
	q := `
UPDATE group_setting
SET semester = $2, year = $3, batch = $4, max_groups = $5, max_members = $6, open_window = $7, deadline = $8
WHERE id = $1
RETURNING *`
	var row settingRow
	err := repo.db.GetContext(ctx, &row, q,
		s.ID, s.Semester, s.Year, s.Batch, s.MaxGroups, s.MaxMembers, s.OpenWindow, s.Deadline)
	if err != nil {
		if isUniqueViolation(err) {
			return group.Setting{}, core.NewConflictError(errSettingExists)
		}
		return group.Setting{}, repo.trapNoRowsErr(err, "updating group setting")
	}
	return row.unpack(), nil
}

func (repo groupRepository) DeleteSetting(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM group_setting WHERE id = $1`, id); err != nil {
		return pkgerrors.Wrap(err, "deleting group setting")
	}
	return nil
}
