package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/sparshv/projportal/core"
	"github.com/sparshv/projportal/core/evaluation"
	"github.com/sparshv/projportal/core/request"
)

type evaluationRepository struct {
	db *DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *DB) evaluation.Repository {
	return &evaluationRepository{db: db}
}

func copyPanel(p *evaluation.Panel) evaluation.Panel {
	panel := *p
	panel.Members = append([]evaluation.Evaluator(nil), p.Members...)
	return panel
}

func copyMarks(rec *evaluation.MarksRecord) evaluation.MarksRecord {
	out := *rec
	if rec.MidTerm != nil {
		mt := *rec.MidTerm
		mt.Members = append([]evaluation.MemberMarks(nil), rec.MidTerm.Members...)
		out.MidTerm = &mt
	}
	if rec.EndTerm != nil {
		et := *rec.EndTerm
		et.Members = append([]evaluation.MemberMarks(nil), rec.EndTerm.Members...)
		out.EndTerm = &et
	}
	return out
}

func (repo *evaluationRepository) CreatePanel(ctx context.Context, p evaluation.Panel) (evaluation.Panel, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.panels {
		if other.Number == p.Number && other.Year == p.Year && other.Semester == p.Semester {
			return evaluation.Panel{}, core.NewConflictError(evaluation.ErrPanelExists)
		}
	}

	p.ID = uuid.New().String()
	stored := copyPanel(&p)
	repo.db.panels[p.ID] = &stored
	return p, nil
}

func (repo *evaluationRepository) GetPanelByID(ctx context.Context, id string) (evaluation.Panel, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.panels[id]; ok {
		return copyPanel(p), nil
	}
	return evaluation.Panel{}, evaluation.ErrPanelNotFound
}

func (repo *evaluationRepository) GetPanelByNumber(ctx context.Context, number, year, semester int) (evaluation.Panel, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, p := range repo.db.panels {
		if p.Number == number && p.Year == year && p.Semester == semester {
			return copyPanel(p), nil
		}
	}
	return evaluation.Panel{}, evaluation.ErrPanelNotFound
}

func (repo *evaluationRepository) QueryPanels(ctx context.Context, filter evaluation.Filter) ([]evaluation.Panel, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var panels []evaluation.Panel
	for _, p := range repo.db.panels {
		if filter.Year != 0 && p.Year != filter.Year {
			continue
		}
		if len(filter.Years) > 0 && !containsInt(filter.Years, p.Year) {
			continue
		}
		if filter.Semester != 0 && p.Semester != filter.Semester {
			continue
		}
		if filter.FacultyID != "" && !panelHasFaculty(p, filter.FacultyID) {
			continue
		}
		panels = append(panels, copyPanel(p))
	}
	sort.Slice(panels, func(i, j int) bool {
		if panels[i].Year != panels[j].Year {
			return panels[i].Year > panels[j].Year
		}
		return panels[i].Number < panels[j].Number
	})
	return panels, nil
}

func (repo *evaluationRepository) UpdatePanel(ctx context.Context, p evaluation.Panel) (evaluation.Panel, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.panels[p.ID]
	if !ok {
		return evaluation.Panel{}, evaluation.ErrPanelNotFound
	}
	for _, other := range repo.db.panels {
		if other.ID != p.ID && other.Number == p.Number && other.Year == p.Year && other.Semester == p.Semester {
			return evaluation.Panel{}, core.NewConflictError(evaluation.ErrPanelExists)
		}
	}

	*orig = copyPanel(&p)
	return p, nil
}

func (repo *evaluationRepository) DeletePanel(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	delete(repo.db.panels, id)
	return nil
}

func (repo *evaluationRepository) GetMarksByRequest(ctx context.Context, requestID string) (evaluation.MarksRecord, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.marks[requestID]; ok {
		return copyMarks(rec), nil
	}
	return evaluation.MarksRecord{}, evaluation.ErrMarksNotFound
}

func (repo *evaluationRepository) SaveMarks(ctx context.Context, rec evaluation.MarksRecord, req request.Request) (evaluation.MarksRecord, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	origReq, ok := repo.db.requests[req.ID]
	if !ok {
		return evaluation.MarksRecord{}, request.ErrNotFound
	}

	if orig, ok := repo.db.marks[rec.RequestID]; ok {
		rec.ID = orig.ID
		if rec.MidTerm == nil {
			rec.MidTerm = orig.MidTerm
		}
		if rec.EndTerm == nil {
			rec.EndTerm = orig.EndTerm
		}
	} else if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	stored := copyMarks(&rec)
	repo.db.marks[rec.RequestID] = &stored

	origReq.TeamMembers = append([]request.TeamMember(nil), req.TeamMembers...)
	origReq.MidTermEvaluated = req.MidTermEvaluated
	origReq.EndTermEvaluated = req.EndTermEvaluated
	origReq.ChairID = req.ChairID
	origReq.EvaluationRecordID = &rec.ID
	origReq.UpdatedAt = req.UpdatedAt

	return rec, nil
}

func panelHasFaculty(p *evaluation.Panel, facultyID string) bool {
	if p.Chair.FacultyID == facultyID {
		return true
	}
	for _, m := range p.Members {
		if m.FacultyID == facultyID {
			return true
		}
	}
	return false
}

func containsInt(ns []int, n int) bool {
	for _, v := range ns {
		if v == n {
			return true
		}
	}
	return false
}
