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

	"github.com/sparshv/projportal/core"
	"github.com/sparshv/projportal/core/evaluation"
	"github.com/sparshv/projportal/core/request"
)

type panelRow struct {
	ID        string    `db:"id"`
	Number    int       `db:"number"`
	Year      int       `db:"year"`
	Semester  int       `db:"semester"`
	Chair     []byte    `db:"chair"`
	Members   []byte    `db:"members"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r panelRow) unpack() (evaluation.Panel, error) {
	p := evaluation.Panel{
		ID:        r.ID,
		Number:    r.Number,
		Year:      r.Year,
		Semester:  r.Semester,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Chair, &p.Chair); err != nil {
		return evaluation.Panel{}, errors.Wrap(err, "decoding panel chair")
	}
	if err := json.Unmarshal(r.Members, &p.Members); err != nil {
		return evaluation.Panel{}, errors.Wrap(err, "decoding panel members")
	}
	return p, nil
}

type marksRow struct {
	ID        string    `db:"id"`
	RequestID string    `db:"request_id"`
	PanelID   string    `db:"panel_id"`
	Year      int       `db:"year"`
	Semester  int       `db:"semester"`
	Batch     int       `db:"batch"`
	GroupNo   int       `db:"group_no"`
	MidTerm   []byte    `db:"mid_term"`
	EndTerm   []byte    `db:"end_term"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r marksRow) unpack() (evaluation.MarksRecord, error) {
	rec := evaluation.MarksRecord{
		ID:        r.ID,
		RequestID: r.RequestID,
		PanelID:   r.PanelID,
		Year:      r.Year,
		Semester:  r.Semester,
		Batch:     r.Batch,
		GroupNo:   r.GroupNo,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.MidTerm != nil {
		if err := json.Unmarshal(r.MidTerm, &rec.MidTerm); err != nil {
			return evaluation.MarksRecord{}, errors.Wrap(err, "decoding mid-term marks")
		}
	}
	if r.EndTerm != nil {
		if err := json.Unmarshal(r.EndTerm, &rec.EndTerm); err != nil {
			return evaluation.MarksRecord{}, errors.Wrap(err, "decoding end-term marks")
		}
	}
	return rec, nil
}

type evaluationRepository struct {
	db *sqlx.DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *sqlx.DB) *evaluationRepository {
	return &evaluationRepository{db: db}
}

func (repo evaluationRepository) CreatePanel(ctx context.Context, p evaluation.Panel) (evaluation.Panel, error) {
	p.ID = uuid.New().String()
	chair, err := json.Marshal(p.Chair)
	if err != nil {
		return evaluation.Panel{}, errors.Wrap(err, "encoding panel chair")
	}
	members, err := json.Marshal(p.Members)
	if err != nil {
		return evaluation.Panel{}, errors.Wrap(err, "encoding panel members")
	}

	q := `
INSERT INTO panel (id, number, year, semester, chair, members, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = repo.db.ExecContext(ctx, q,
		p.ID, p.Number, p.Year, p.Semester, chair, members, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return evaluation.Panel{}, core.NewConflictError(evaluation.ErrPanelExists)
		}
		return evaluation.Panel{}, errors.Wrap(err, "inserting panel")
	}
	return p, nil
}

func (repo evaluationRepository) GetPanelByID(ctx context.Context, id string) (evaluation.Panel, error) {
	if _, err := uuid.Parse(id); err != nil {
		return evaluation.Panel{}, evaluation.ErrPanelNotFound
	}
	var row panelRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM panel WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return evaluation.Panel{}, evaluation.ErrPanelNotFound
		}
		return evaluation.Panel{}, errors.Wrap(err, "finding panel by ID")
	}
	return row.unpack()
}

func (repo evaluationRepository) GetPanelByNumber(ctx context.Context, number, year, semester int) (evaluation.Panel, error) {
	var row panelRow
	q := `SELECT * FROM panel WHERE number = $1 AND year = $2 AND semester = $3`
	if err := repo.db.GetContext(ctx, &row, q, number, year, semester); err != nil {
		if err == sql.ErrNoRows {
			return evaluation.Panel{}, evaluation.ErrPanelNotFound
		}
		return evaluation.Panel{}, errors.Wrap(err, "finding panel by number")
	}
	return row.unpack()
}

func (repo evaluationRepository) QueryPanels(ctx context.Context, filter evaluation.Filter) ([]evaluation.Panel, error) {
	var where []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Year != 0 {
		where = append(where, "year = "+arg(filter.Year))
	}
	if len(filter.Years) > 0 {
		where = append(where, "year = ANY("+arg(pq.Array(filter.Years))+")")
	}
	if filter.Semester != 0 {
		where = append(where, "semester = "+arg(filter.Semester))
	}
	if filter.FacultyID != "" {
		p := arg(filter.FacultyID)
		where = append(where, fmt.Sprintf(
			"(chair ->> 'faculty_id' = %[1]s OR EXISTS (SELECT 1 FROM JSONB_ARRAY_ELEMENTS(members) m WHERE m ->> 'faculty_id' = %[1]s))", p))
	}

	q := `SELECT * FROM panel`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY year DESC, number"

	var rows []panelRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying panels")
	}
	panels := make([]evaluation.Panel, 0, len(rows))
	for _, r := range rows {
		p, err := r.unpack()
		if err != nil {
			return nil, err
		}
		panels = append(panels, p)
	}
	return panels, nil
}

func (repo evaluationRepository) UpdatePanel(ctx context.Context, p evaluation.Panel) (evaluation.Panel, error) {
	chair, err := json.Marshal(p.Chair)
	if err != nil {
		return evaluation.Panel{}, errors.Wrap(err, "encoding panel chair")
	}
	members, err := json.Marshal(p.Members)
	if err != nil {
		return evaluation.Panel{}, errors.Wrap(err, "encoding panel members")
	}

	q := `
UPDATE panel
SET number = $2, year = $3, semester = $4, chair = $5, members = $6, updated_at = $7
WHERE id = $1
RETURNING *`
	var row panelRow
	err = repo.db.GetContext(ctx, &row, q,
		p.ID, p.Number, p.Year, p.Semester, chair, members, p.UpdatedAt.UTC())
	if err != nil {
		if err == sql.ErrNoRows {
			return evaluation.Panel{}, evaluation.ErrPanelNotFound
		}
		if isUniqueViolation(err) {
			return evaluation.Panel{}, core.NewConflictError(evaluation.ErrPanelExists)
		}
		return evaluation.Panel{}, errors.Wrap(err, "updating panel")
	}
	return row.unpack()
}

func (repo evaluationRepository) DeletePanel(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM panel WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting panel")
	}
	return nil
}

func (repo evaluationRepository) GetMarksByRequest(ctx context.Context, requestID string) (evaluation.MarksRecord, error) {
	if _, err := uuid.Parse(requestID); err != nil {
		return evaluation.MarksRecord{}, evaluation.ErrMarksNotFound
	}
	var row marksRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM evaluation_marks WHERE request_id = $1`, requestID); err != nil {
		if err == sql.ErrNoRows {
			return evaluation.MarksRecord{}, evaluation.ErrMarksNotFound
		}
		return evaluation.MarksRecord{}, errors.Wrap(err, "finding evaluation record")
	}
	return row.unpack()
}

// SaveMarks upserts the marks record and rewrites the request's roster marks
// and evaluation flags as one transaction.
func (repo evaluationRepository) SaveMarks(ctx context.Context, rec evaluation.MarksRecord, req request.Request) (evaluation.MarksRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	var midTerm, endTerm []byte
	var err error
	if rec.MidTerm != nil {
		if midTerm, err = json.Marshal(rec.MidTerm); err != nil {
			return evaluation.MarksRecord{}, errors.Wrap(err, "encoding mid-term marks")
		}
	}
	if rec.EndTerm != nil {
		if endTerm, err = json.Marshal(rec.EndTerm); err != nil {
			return evaluation.MarksRecord{}, errors.Wrap(err, "encoding end-term marks")
		}
	}
	roster, err := json.Marshal(req.TeamMembers)
	if err != nil {
		return evaluation.MarksRecord{}, errors.Wrap(err, "encoding team members")
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return evaluation.MarksRecord{}, errors.Wrap(err, "beginning marks tx")
	}
	defer func() { _ = tx.Rollback() }()

	q := `
INSERT INTO evaluation_marks (id, request_id, panel_id, year, semester, batch, group_no,
                              mid_term, end_term, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (request_id) DO UPDATE
    SET panel_id   = EXCLUDED.panel_id,
        mid_term   = COALESCE(EXCLUDED.mid_term, evaluation_marks.mid_term),
        end_term   = COALESCE(EXCLUDED.end_term, evaluation_marks.end_term),
        updated_at = EXCLUDED.updated_at
RETURNING *`
	var row marksRow
	err = tx.GetContext(ctx, &row, q,
		rec.ID, rec.RequestID, rec.PanelID, rec.Year, rec.Semester, rec.Batch, rec.GroupNo,
		midTerm, endTerm, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return evaluation.MarksRecord{}, errors.Wrap(err, "upserting evaluation record")
	}

	res, err := tx.ExecContext(ctx, `
UPDATE request
SET team_members         = $2,
    mid_term_evaluated   = $3,
    end_term_evaluated   = $4,
    chair_id             = $5,
    evaluation_record_id = $6,
    updated_at           = $7
WHERE id = $1`,
		req.ID, roster, req.MidTermEvaluated, req.EndTermEvaluated,
		null.StringFromPtr(req.ChairID), row.ID, req.UpdatedAt.UTC())
	if err != nil {
		return evaluation.MarksRecord{}, errors.Wrap(err, "updating request marks")
	}
	if n, err := res.RowsAffected(); err != nil {
		return evaluation.MarksRecord{}, errors.Wrap(err, "updating request marks")
	} else if n == 0 {
		return evaluation.MarksRecord{}, request.ErrNotFound
	}

	if err = tx.Commit(); err != nil {
		return evaluation.MarksRecord{}, errors.Wrap(err, "committing marks tx")
	}
	return row.unpack()
}
