package dummydb

import (
	"context"
	"testing"
	"time"

	"github.com/sparshv/projportal/core/evaluation"
	"github.com/sparshv/projportal/core/request"
)

func Test_evaluationRepository_SaveMarks(t *testing.T) {
	db := newTestDB(t)
	repo := NewEvaluationRepository(db)
	reqRepo := NewRequestRepository(db)
	ctx := context.Background()

	req := seedRequest(t, reqRepo, "prof", 2026, 7, 2023, 1)
	now := time.Now().UTC()
	chairID := "prof"

	mid := &evaluation.PhaseEvaluation{
		EvaluatedAt: now,
		Members:     []evaluation.MemberMarks{{StudentID: "stu", ChairMarks: 6, Eval2Marks: 7, Eval3Marks: 6, Score: 13}},
	}
	marks := 13
	req.TeamMembers[0].MidTermMarks = &marks
	req.MidTermEvaluated = true
	req.ChairID = &chairID

	rec, err := repo.SaveMarks(ctx, evaluation.MarksRecord{
		RequestID: req.ID,
		PanelID:   "panel",
		Year:      2026,
		Semester:  7,
		Batch:     2023,
		MidTerm:   mid,
		CreatedAt: now,
		UpdatedAt: now,
	}, req)
	if err != nil {
		t.Fatalf("SaveMarks() failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("record was not assigned an ID")
	}

	// the request roster was rewritten in the same operation
	stored, err := reqRepo.GetRequestByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequestByID() failed: %v", err)
	}
	if !stored.MidTermEvaluated || stored.EndTermEvaluated {
		t.Errorf("evaluated flags = (%v, %v); want (true, false)", stored.MidTermEvaluated, stored.EndTermEvaluated)
	}
	if m := stored.TeamMembers[0].MidTermMarks; m == nil || *m != 13 {
		t.Errorf("roster mid-term marks = %v; want 13", m)
	}
	if stored.EvaluationRecordID == nil || *stored.EvaluationRecordID != rec.ID {
		t.Errorf("evaluation_record_id = %v; want %s", stored.EvaluationRecordID, rec.ID)
	}

	// an end-term upsert must not clobber the stored mid-term phase
	end := &evaluation.PhaseEvaluation{
		EvaluatedAt: now,
		Members:     []evaluation.MemberMarks{{StudentID: "stu", ChairMarks: 40, Eval2Marks: 40, Eval3Marks: 40, Score: 80}},
	}
	endMarks, total, grade := 80, 93, "A+"
	req.TeamMembers[0].EndTermMarks = &endMarks
	req.TeamMembers[0].TotalMarks = &total
	req.TeamMembers[0].Grade = &grade
	req.EndTermEvaluated = true

	rec2, err := repo.SaveMarks(ctx, evaluation.MarksRecord{
		RequestID: req.ID,
		PanelID:   "panel",
		Year:      2026,
		Semester:  7,
		Batch:     2023,
		EndTerm:   end,
		UpdatedAt: time.Now().UTC(),
	}, req)
	if err != nil {
		t.Fatalf("SaveMarks() failed: %v", err)
	}
	if rec2.ID != rec.ID {
		t.Errorf("record ID changed on upsert: %s -> %s", rec.ID, rec2.ID)
	}
	if rec2.MidTerm == nil || rec2.MidTerm.Members[0].Score != 13 {
		t.Errorf("mid-term phase was lost on end-term upsert: %+v", rec2.MidTerm)
	}
	if rec2.EndTerm == nil || rec2.EndTerm.Members[0].Score != 80 {
		t.Errorf("end_term = %+v; want score 80", rec2.EndTerm)
	}

	stored, err = reqRepo.GetRequestByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequestByID() failed: %v", err)
	}
	if m := stored.TeamMembers[0]; m.TotalMarks == nil || *m.TotalMarks != 93 || *m.Grade != "A+" {
		t.Errorf("roster totals = %+v; want 93 / A+", m)
	}

	// records are looked up by request
	if _, err := repo.GetMarksByRequest(ctx, req.ID); err != nil {
		t.Errorf("GetMarksByRequest() failed: %v", err)
	}
	if _, err := repo.GetMarksByRequest(ctx, "lol"); err != evaluation.ErrMarksNotFound {
		t.Errorf("GetMarksByRequest() error = %v; want %v", err, evaluation.ErrMarksNotFound)
	}
	if _, err := repo.SaveMarks(ctx, evaluation.MarksRecord{RequestID: "lol"}, request.Request{ID: "lol"}); err != request.ErrNotFound {
		t.Errorf("SaveMarks() error = %v; want %v", err, request.ErrNotFound)
	}
}
