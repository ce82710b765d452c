package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/sparshv/projportal/core/evaluation"
	"github.com/sparshv/projportal/core/request"
	"github.com/sparshv/projportal/core/user"
	testutil "github.com/sparshv/projportal/tests"
)

func createPanel(t *testing.T, number, year, semester int, chair user.User, members ...evaluation.Evaluator) evaluation.Panel {
	t.Helper()

	now := time.Now().UTC()
	p, err := evalRepo.CreatePanel(context.Background(), evaluation.Panel{
		Number:   number,
		Year:     year,
		Semester: semester,
		Chair: evaluation.Evaluator{
			FacultyID: chair.ID,
			Name:      chair.Name,
			Email:     chair.Email,
		},
		Members:   members,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreatePanel() failed: %v", err)
	}
	return p
}

func Test_evaluationApi_panels(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.edu", "", []string{user.RoleAdmin}, true)
	chair := testutil.CreateUser(t, usrRepo, "Prof Kumar", "pkumar", "pkumar@test.edu", "", []string{user.RoleFaculty}, true)
	eval2 := testutil.CreateUser(t, usrRepo, "Prof Singh", "psingh", "psingh@test.edu", "", []string{user.RoleFaculty}, true)
	hero := testutil.CreateStudent(t, usrRepo, "Hero", "hero01", "hero@test.edu", 41, 7, 2023)

	adminToken := getToken(t, admin)

	newPanel := func(number int, chairSeat evaluation.NewSeat) evaluation.NewPanel {
		return evaluation.NewPanel{
			Number:   number,
			Year:     2026,
			Semester: 7,
			Chair:    chairSeat,
			Members: []evaluation.NewSeat{
				{Name: eval2.Name, Email: eval2.Email},
				{Name: "Dr External", Email: "external@other.edu", IsManual: true},
			},
		}
	}
	chairSeat := evaluation.NewSeat{Name: chair.Name, Email: chair.Email}

	tests := []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/panels", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", method: http.MethodPost, path: "/v1/panels", token: getToken(t, chair),
			body: marchallObj(t, newPanel(1, chairSeat)), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unresolved chair", method: http.MethodPost, path: "/v1/panels", token: adminToken,
			body:     marchallObj(t, newPanel(1, evaluation.NewSeat{Name: "Ghost", Email: "ghost@test.edu"})),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"chair": "no faculty account matches the evaluator email"}),
		},
		{
			name: "panel assigned", method: http.MethodPost, path: "/v1/panels", token: adminToken,
			body: marchallObj(t, newPanel(1, chairSeat)), wantCode: http.StatusCreated,
		},
		{
			name: "duplicate panel number", method: http.MethodPost, path: "/v1/panels", token: adminToken,
			body:     marchallObj(t, newPanel(1, chairSeat)),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "a panel with this number already exists for this semester and year"}),
		},
		{
			name: "list requires a year", method: http.MethodGet, path: "/v1/panels", token: getToken(t, chair),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"years": "at least one year is required"}),
		},
		{
			name: "Faculty required", method: http.MethodGet, path: "/v1/panels?year=2026", token: getToken(t, hero),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData evaluation.Panel
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Chair.FacultyID != chair.ID {
					t.Errorf("failed! chair faculty_id = %s; want %s", respData.Chair.FacultyID, chair.ID)
				}
				if len(respData.Members) != 2 {
					t.Fatalf("failed! members = %d; want 2", len(respData.Members))
				}
				if respData.Members[0].FacultyID != eval2.ID {
					t.Errorf("failed! evaluator2 not resolved against the directory")
				}
				if !respData.Members[1].IsManual || respData.Members[1].FacultyID != "" {
					t.Errorf("failed! manual seat must stay unresolved; got %+v", respData.Members[1])
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// every seat holder sees the panel under ?mine=true
	req, rec := newAuthRequest(http.MethodGet, "/v1/panels?mine=true", getToken(t, eval2))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; want %v", rec.Code, http.StatusOK)
	}
	var panels []evaluation.Panel
	if err := json.Unmarshal(rec.Body.Bytes(), &panels); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(panels) != 1 || panels[0].Number != 1 {
		t.Errorf("failed! panels = %+v; want the assigned panel", panels)
	}
}

func Test_evaluationApi_marks(t *testing.T) {
	app := setup(t)

	ctx := context.Background()

	chair := testutil.CreateUser(t, usrRepo, "Prof Kumar", "pkumar", "pkumar@test.edu", "", []string{user.RoleFaculty}, true)
	eval2 := testutil.CreateUser(t, usrRepo, "Prof Singh", "psingh", "psingh@test.edu", "", []string{user.RoleFaculty}, true)
	hero := testutil.CreateStudent(t, usrRepo, "Hero", "hero01", "hero@test.edu", 41, 7, 2023)
	king := testutil.CreateStudent(t, usrRepo, "King", "king01", "king@test.edu", 42, 7, 2023)
	outsider := testutil.CreateStudent(t, usrRepo, "Out", "outs01", "out@test.edu", 43, 7, 2023)

	createLoadRow(t, chair, 2026, 7)
	req := createPendingRequest(t, chair, "Smart Campus", 2026, 7, 2023, hero, king)
	req, err := reqRepo.AcceptRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("AcceptRequest() failed: %v", err)
	}

	panel := createPanel(t, 1, 2026, 7, chair,
		evaluation.Evaluator{FacultyID: eval2.ID, Name: eval2.Name, Email: eval2.Email},
		evaluation.Evaluator{Name: "Dr External", Email: "external@other.edu", IsManual: true},
	)

	chairToken := getToken(t, chair)
	submission := func(phase string, members ...evaluation.MarksSubmission) []byte {
		return marchallObj(t, evaluation.PhaseSubmission{
			RequestID: req.ID,
			PanelID:   panel.ID,
			Phase:     phase,
			Members:   members,
		})
	}

	// Mid-Term: chair marks in full, evaluators' mean rounded up
	midTerm := submission(evaluation.PhaseMidTerm,
		evaluation.MarksSubmission{StudentID: hero.ID, ChairMarks: 6, Eval2Marks: 7, Eval3Marks: 6},
		evaluation.MarksSubmission{StudentID: king.ID, ChairMarks: 5, Eval2Marks: 5, Eval3Marks: 5},
	)
	hreq, hrec := newAuthRequest(http.MethodPost, "/v1/marks", chairToken, midTerm)
	app.ServeHTTP(hrec, hreq)
	if hrec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", hrec.Code, hrec.Body.String())
	}
	var rec evaluation.MarksRecord
	if err := json.Unmarshal(hrec.Body.Bytes(), &rec); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if rec.MidTerm == nil || len(rec.MidTerm.Members) != 2 {
		t.Fatalf("failed! mid_term = %+v; want 2 scored members", rec.MidTerm)
	}
	if got := rec.MidTerm.Members[0].Score; got != 13 {
		t.Errorf("failed! hero mid-term score = %d; want 13", got)
	}
	if got := rec.MidTerm.Members[1].Score; got != 10 {
		t.Errorf("failed! king mid-term score = %d; want 10", got)
	}

	// a scored phase cannot be submitted again, even with different marks
	redo := submission(evaluation.PhaseMidTerm,
		evaluation.MarksSubmission{StudentID: hero.ID, ChairMarks: 1, Eval2Marks: 1, Eval3Marks: 1},
		evaluation.MarksSubmission{StudentID: king.ID, ChairMarks: 1, Eval2Marks: 1, Eval3Marks: 1},
	)
	hreq, hrec = newAuthRequest(http.MethodPost, "/v1/marks", chairToken, redo)
	app.ServeHTTP(hrec, hreq)
	if hrec.Code != http.StatusConflict {
		t.Fatalf("failed! code = %v; want %v", hrec.Code, http.StatusConflict)
	}
	var conflictErr httpErr
	if err := json.Unmarshal(hrec.Body.Bytes(), &conflictErr); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if conflictErr.Error != "this phase has already been evaluated for this project" {
		t.Errorf("failed! error = %q", conflictErr.Error)
	}

	// roster updated and untouched by the refused resubmission;
	// totals withheld until both phases are in
	refreshed, err := reqRepo.GetRequestByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequestByID() failed: %v", err)
	}
	if !refreshed.MidTermEvaluated || refreshed.EndTermEvaluated {
		t.Errorf("failed! evaluated flags = (%v, %v); want (true, false)", refreshed.MidTermEvaluated, refreshed.EndTermEvaluated)
	}
	if m := refreshed.Member(hero.ID); m == nil || m.MidTermMarks == nil || *m.MidTermMarks != 13 {
		t.Errorf("failed! hero roster mid-term marks = %+v; want 13", m)
	}
	if m := refreshed.Member(hero.ID); m.TotalMarks != nil || m.Grade != nil {
		t.Errorf("failed! totals must wait for the end-term phase")
	}
	if refreshed.ChairID == nil || *refreshed.ChairID != chair.ID {
		t.Errorf("failed! chair_id = %v; want %s", refreshed.ChairID, chair.ID)
	}

	// a student outside the team cannot be scored
	rogue := submission(evaluation.PhaseEndTerm,
		evaluation.MarksSubmission{StudentID: outsider.ID, ChairMarks: 1, Eval2Marks: 1, Eval3Marks: 1},
	)
	hreq, hrec = newAuthRequest(http.MethodPost, "/v1/marks", chairToken, rogue)
	app.ServeHTTP(hrec, hreq)
	if hrec.Code != http.StatusBadRequest {
		t.Fatalf("failed! code = %v; want %v", hrec.Code, http.StatusBadRequest)
	}

	// End-Term: totals and grades are fixed, mid-term marks stay intact
	endTerm := submission(evaluation.PhaseEndTerm,
		evaluation.MarksSubmission{StudentID: hero.ID, ChairMarks: 40, Eval2Marks: 40, Eval3Marks: 40},
		evaluation.MarksSubmission{StudentID: king.ID, ChairMarks: 30, Eval2Marks: 30, Eval3Marks: 29},
	)
	hreq, hrec = newAuthRequest(http.MethodPost, "/v1/marks", chairToken, endTerm)
	app.ServeHTTP(hrec, hreq)
	if hrec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", hrec.Code, hrec.Body.String())
	}
	if err := json.Unmarshal(hrec.Body.Bytes(), &rec); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if rec.MidTerm == nil || len(rec.MidTerm.Members) != 2 {
		t.Fatalf("failed! mid-term marks were lost on end-term submission")
	}
	if rec.EndTerm == nil || len(rec.EndTerm.Members) != 2 {
		t.Fatalf("failed! end_term = %+v; want 2 scored members", rec.EndTerm)
	}
	if got := rec.EndTerm.Members[0].Score; got != 80 {
		t.Errorf("failed! hero end-term score = %d; want 80", got)
	}
	if got := rec.EndTerm.Members[1].Score; got != 60 {
		t.Errorf("failed! king end-term score = %d; want 60", got)
	}

	refreshed, err = reqRepo.GetRequestByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequestByID() failed: %v", err)
	}
	if m := refreshed.Member(hero.ID); m == nil || m.TotalMarks == nil || *m.TotalMarks != 93 || *m.Grade != evaluation.GradeAPlus {
		t.Errorf("failed! hero totals = %+v; want 93 / A+", m)
	}
	if m := refreshed.Member(king.ID); m == nil || m.TotalMarks == nil || *m.TotalMarks != 70 || *m.Grade != evaluation.GradeBPlus {
		t.Errorf("failed! king totals = %+v; want 70 / B+", m)
	}
	if !refreshed.MidTermEvaluated || !refreshed.EndTermEvaluated {
		t.Errorf("failed! evaluated flags = (%v, %v); want (true, true)", refreshed.MidTermEvaluated, refreshed.EndTermEvaluated)
	}

	// retrieve the record
	hreq, hrec = newAuthRequest(http.MethodGet, "/v1/marks/"+req.ID, chairToken)
	app.ServeHTTP(hrec, hreq)
	if hrec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; want %v", hrec.Code, http.StatusOK)
	}
	hreq, hrec = newAuthRequest(http.MethodGet, "/v1/marks/lol", chairToken)
	app.ServeHTTP(hrec, hreq)
	if hrec.Code != http.StatusNotFound {
		t.Fatalf("failed! code = %v; want %v", hrec.Code, http.StatusNotFound)
	}

	// panel projects roster
	hreq, hrec = newAuthRequest(http.MethodGet, "/v1/panels/projects?panel_id="+panel.ID, chairToken)
	app.ServeHTTP(hrec, hreq)
	if hrec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; want %v", hrec.Code, http.StatusOK)
	}
	var projects []request.Request
	if err := json.Unmarshal(hrec.Body.Bytes(), &projects); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(projects) != 1 || projects[0].ID != req.ID {
		t.Errorf("failed! projects = %+v; want the chaired project", projects)
	}
}
