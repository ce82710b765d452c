package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sparshv/projportal/core/request"
)

type requestRow struct {
	ID                 string      `db:"id"`
	GroupNo            int         `db:"group_no"`
	Batch              int         `db:"batch"`
	Year               int         `db:"year"`
	Semester           int         `db:"semester"`
	Title              string      `db:"title"`
	Content            string      `db:"content"`
	FacultyID          string      `db:"faculty_id"`
	FacultyName        string      `db:"faculty_name"`
	TeamMembers        []byte      `db:"team_members"`
	Approved           bool        `db:"approved"`
	Status             string      `db:"status"`
	MidTermEvaluated   bool        `db:"mid_term_evaluated"`
	EndTermEvaluated   bool        `db:"end_term_evaluated"`
	ChairID            null.String `db:"chair_id"`
	EvaluationRecordID null.String `db:"evaluation_record_id"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

func (r requestRow) unpack() (request.Request, error) {
	req := request.Request{
		ID:                 r.ID,
		GroupNo:            r.GroupNo,
		Batch:              r.Batch,
		Year:               r.Year,
		Semester:           r.Semester,
		Title:              r.Title,
		Content:            r.Content,
		FacultyID:          r.FacultyID,
		FacultyName:        r.FacultyName,
		Approved:           r.Approved,
		Status:             r.Status,
		MidTermEvaluated:   r.MidTermEvaluated,
		EndTermEvaluated:   r.EndTermEvaluated,
		ChairID:            r.ChairID.Ptr(),
		EvaluationRecordID: r.EvaluationRecordID.Ptr(),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if err := json.Unmarshal(r.TeamMembers, &req.TeamMembers); err != nil {
		return request.Request{}, errors.Wrap(err, "decoding team members")
	}
	return req, nil
}

func unpackRequestRows(rows []requestRow) ([]request.Request, error) {
	reqs := make([]request.Request, 0, len(rows))
	for _, r := range rows {
		req, err := r.unpack()
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

type requestRepository struct {
	db *sqlx.DB
}

var _ request.Repository = (*requestRepository)(nil) // interface compliance check

func NewRequestRepository(db *sqlx.DB) *requestRepository {
	return &requestRepository{db: db}
}

func (repo requestRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return request.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo requestRepository) CreateRequest(ctx context.Context, req request.Request) (request.Request, error) {
	req.ID = uuid.New().String()
	members, err := json.Marshal(req.TeamMembers)
	if err != nil {
		return request.Request{}, errors.Wrap(err, "encoding team members")
	}

	q := `
INSERT INTO request (id, group_no, batch, year, semester, title, content, faculty_id, faculty_name,
                     team_members, approved, status, mid_term_evaluated, end_term_evaluated,
                     chair_id, evaluation_record_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err = repo.db.ExecContext(ctx, q,
		req.ID, req.GroupNo, req.Batch, req.Year, req.Semester, req.Title, req.Content,
		req.FacultyID, req.FacultyName, members, req.Approved, req.Status,
		req.MidTermEvaluated, req.EndTermEvaluated,
		null.StringFromPtr(req.ChairID), null.StringFromPtr(req.EvaluationRecordID),
		req.CreatedAt.UTC(), req.UpdatedAt.UTC(),
	)
	if err != nil {
		return request.Request{}, errors.Wrap(err, "inserting request")
	}
	return req, nil
}

func (repo requestRepository) GetRequestByID(ctx context.Context, id string) (request.Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return request.Request{}, request.ErrNotFound
	}
	var row requestRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM request WHERE id = $1`, id); err != nil {
		return request.Request{}, repo.trapNoRowsErr(err, "finding request by ID")
	}
	return row.unpack()
}

func (repo requestRepository) GetRequestByTeamMember(ctx context.Context, studentID string, semester int) (request.Request, error) {
	q := `
SELECT * FROM request
WHERE semester = $1
  AND team_members @> $2
ORDER BY created_at DESC
LIMIT 1`
	member, _ := json.Marshal([]map[string]string{{"student_id": studentID}})

	var row requestRow
	if err := repo.db.GetContext(ctx, &row, q, semester, member); err != nil {
		return request.Request{}, repo.trapNoRowsErr(err, "finding request by team member")
	}
	return row.unpack()
}

func (repo requestRepository) QueryRequests(ctx context.Context, filter request.Filter) ([]request.Request, error) {
	var where []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.FacultyID != "" {
		where = append(where, "faculty_id = "+arg(filter.FacultyID))
	}
	if len(filter.FacultyIDs) > 0 {
		where = append(where, "faculty_id = ANY("+arg(pq.Array(filter.FacultyIDs))+")")
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.Approved != nil {
		where = append(where, "approved = "+arg(*filter.Approved))
	}
	if filter.Year != 0 {
		where = append(where, "year = "+arg(filter.Year))
	}
	if filter.Semester != 0 {
		where = append(where, "semester = "+arg(filter.Semester))
	}
	if filter.Batch != 0 {
		where = append(where, "batch = "+arg(filter.Batch))
	}

	q := `SELECT * FROM request`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.OrderByGroupNo {
		q += " ORDER BY batch, group_no"
	} else {
		q += " ORDER BY created_at"
	}

	var rows []requestRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying requests")
	}
	return unpackRequestRows(rows)
}

func (repo requestRepository) ActiveStudentIDs(ctx context.Context, semester, batch int) ([]string, error) {
	q := `
SELECT DISTINCT m ->> 'student_id'
FROM request, JSONB_ARRAY_ELEMENTS(team_members) m
WHERE semester = $1 AND batch = $2 AND status <> $3`
	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, q, semester, batch, request.StatusRejected); err != nil {
		return nil, errors.Wrap(err, "querying active students")
	}
	return ids, nil
}

// AcceptRequest runs the decision as one transaction: the pending row is
// locked, flipped to accepted with the next dense group number of its
// (semester, batch), and the supervising faculty's load row is charged.
func (repo requestRepository) AcceptRequest(ctx context.Context, id string) (request.Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return request.Request{}, request.ErrNotFound
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return request.Request{}, errors.Wrap(err, "beginning accept tx")
	}
	defer func() { _ = tx.Rollback() }()

	var row requestRow
	if err = tx.GetContext(ctx, &row, `SELECT * FROM request WHERE id = $1 FOR UPDATE`, id); err != nil {
		return request.Request{}, repo.trapNoRowsErr(err, "locking request")
	}
	if row.Status != request.StatusPending {
		return request.Request{}, request.ErrAlreadyDecided
	}

	q := `
UPDATE request
SET status     = $2,
    approved   = TRUE,
    group_no   = (SELECT COUNT(*) + 1 FROM request WHERE semester = $3 AND batch = $4 AND status = $2),
    updated_at = $5
WHERE id = $1
RETURNING *`
	if err = tx.GetContext(ctx, &row, q, id, request.StatusAccepted, row.Semester, row.Batch, time.Now().UTC()); err != nil {
		return request.Request{}, errors.Wrap(err, "accepting request")
	}
	req, err := row.unpack()
	if err != nil {
		return request.Request{}, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE faculty_load
SET total_groups   = total_groups + 1,
    total_students = total_students + $4
WHERE faculty_id = $1 AND year = $2 AND semester = $3`,
		req.FacultyID, req.Year, req.Semester, len(req.TeamMembers))
	if err != nil {
		return request.Request{}, errors.Wrap(err, "charging faculty load")
	}
	if n, err := res.RowsAffected(); err != nil {
		return request.Request{}, errors.Wrap(err, "charging faculty load")
	} else if n == 0 {
		return request.Request{}, request.ErrFacultyLoadMissing
	}

	if err = tx.Commit(); err != nil {
		return request.Request{}, errors.Wrap(err, "committing accept tx")
	}
	return req, nil
}

func (repo requestRepository) RejectRequest(ctx context.Context, id string) (request.Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return request.Request{}, request.ErrNotFound
	}

	q := `
UPDATE request
SET status = $2, approved = FALSE, updated_at = $3
WHERE id = $1 AND status = $4
RETURNING *`
	var row requestRow
	err := repo.db.GetContext(ctx, &row, q, id, request.StatusRejected, time.Now().UTC(), request.StatusPending)
	if err == sql.ErrNoRows {
		// either absent or already decided
		if _, err := repo.GetRequestByID(ctx, id); err != nil {
			return request.Request{}, err
		}
		return request.Request{}, request.ErrAlreadyDecided
	}
	if err != nil {
		return request.Request{}, errors.Wrap(err, "rejecting request")
	}
	return row.unpack()
}
