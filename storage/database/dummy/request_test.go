package dummydb

import (
	"context"
	"testing"
	"time"

	"github.com/sparshv/projportal/core/load"
	"github.com/sparshv/projportal/core/request"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open()
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	return db
}

func seedRequest(t *testing.T, repo request.Repository, facultyID string, year, semester, batch, teamSize int) request.Request {
	t.Helper()

	now := time.Now().UTC()
	req := request.Request{
		Title:     "Project",
		Content:   "Content",
		FacultyID: facultyID,
		Year:      year,
		Semester:  semester,
		Batch:     batch,
		Status:    request.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := 0; i < teamSize; i++ {
		req.TeamMembers = append(req.TeamMembers, request.TeamMember{StudentID: "stu", Roll: i + 1})
	}
	req, err := repo.CreateRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}
	return req
}

func seedLoad(t *testing.T, repo load.Repository, facultyID string, year, semester int) {
	t.Helper()
	_, err := repo.UpsertLoadMaxima(context.Background(), load.FacultyLoad{
		FacultyID:          facultyID,
		Year:               year,
		Semester:           semester,
		MaxGroupsAllowed:   5,
		MaxStudentsAllowed: 4,
	})
	if err != nil {
		t.Fatalf("UpsertLoadMaxima() failed: %v", err)
	}
}

func Test_requestRepository_AcceptRequest(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestRepository(db)
	loads := NewLoadRepository(db)
	ctx := context.Background()

	seedLoad(t, loads, "prof", 2026, 7)

	req1 := seedRequest(t, repo, "prof", 2026, 7, 2023, 2)
	req2 := seedRequest(t, repo, "prof", 2026, 7, 2023, 3)
	req3 := seedRequest(t, repo, "prof", 2026, 7, 2023, 1)
	otherCohort := seedRequest(t, repo, "prof", 2026, 5, 2024, 1)

	// group numbers are a dense 1-based sequence per (semester, batch)
	req1, err := repo.AcceptRequest(ctx, req1.ID)
	if err != nil {
		t.Fatalf("AcceptRequest() failed: %v", err)
	}
	if req1.GroupNo != 1 {
		t.Errorf("group_no = %d; want 1", req1.GroupNo)
	}
	if req1.Status != request.StatusAccepted || !req1.Approved {
		t.Errorf("status = (%s, %v); want (accepted, true)", req1.Status, req1.Approved)
	}

	// a rejection in between does not burn a number
	if _, err := repo.RejectRequest(ctx, req2.ID); err != nil {
		t.Fatalf("RejectRequest() failed: %v", err)
	}
	req3, err = repo.AcceptRequest(ctx, req3.ID)
	if err != nil {
		t.Fatalf("AcceptRequest() failed: %v", err)
	}
	if req3.GroupNo != 2 {
		t.Errorf("group_no = %d; want 2", req3.GroupNo)
	}

	// numbering is scoped to the cohort
	seedLoad(t, loads, "prof", 2026, 5)
	otherCohort, err = repo.AcceptRequest(ctx, otherCohort.ID)
	if err != nil {
		t.Fatalf("AcceptRequest() failed: %v", err)
	}
	if otherCohort.GroupNo != 1 {
		t.Errorf("group_no = %d; want 1 in a fresh cohort", otherCohort.GroupNo)
	}

	// the supervisor's load was charged once per accepted group
	fl, err := loads.GetLoad(ctx, "prof", 2026, 7)
	if err != nil {
		t.Fatalf("GetLoad() failed: %v", err)
	}
	if fl.TotalGroups != 2 {
		t.Errorf("total_groups = %d; want 2", fl.TotalGroups)
	}
	if fl.TotalStudents != 3 {
		t.Errorf("total_students = %d; want 3", fl.TotalStudents)
	}

	// deciding twice is refused
	if _, err := repo.AcceptRequest(ctx, req1.ID); err != request.ErrAlreadyDecided {
		t.Errorf("AcceptRequest() error = %v; want %v", err, request.ErrAlreadyDecided)
	}
	if _, err := repo.RejectRequest(ctx, req2.ID); err != request.ErrAlreadyDecided {
		t.Errorf("RejectRequest() error = %v; want %v", err, request.ErrAlreadyDecided)
	}
	if _, err := repo.AcceptRequest(ctx, "lol"); err != request.ErrNotFound {
		t.Errorf("AcceptRequest() error = %v; want %v", err, request.ErrNotFound)
	}
}

func Test_requestRepository_AcceptRequest_missingLoad(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()

	req := seedRequest(t, repo, "prof", 2026, 7, 2023, 2)

	// no load row to charge: the whole acceptance is rolled back
	if _, err := repo.AcceptRequest(ctx, req.ID); err != request.ErrFacultyLoadMissing {
		t.Fatalf("AcceptRequest() error = %v; want %v", err, request.ErrFacultyLoadMissing)
	}
	req, err := repo.GetRequestByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequestByID() failed: %v", err)
	}
	if req.Status != request.StatusPending || req.GroupNo != 0 {
		t.Errorf("request = (%s, %d); want it left pending and unnumbered", req.Status, req.GroupNo)
	}
}
