package evaluation

import (
	"context"
	"errors"
	"time"

	"github.com/sparshv/projportal/core"
	"github.com/sparshv/projportal/core/request"
	"github.com/sparshv/projportal/core/user"
)

var (
	// errors
	ErrPanelNotFound   = errors.New("panel not found")
	ErrPanelExists     = errors.New("a panel with this number already exists for this semester and year")
	ErrMarksNotFound   = errors.New("evaluation record not found")
	ErrPhaseEvaluated  = errors.New("this phase has already been evaluated for this project")
	ErrSeatNotResolved = errors.New("no faculty account matches the evaluator email")
)

type (
	Repository interface {
		CreatePanel(ctx context.Context, p Panel) (Panel, error)
		GetPanelByID(ctx context.Context, id string) (Panel, error)
		// GetPanelByNumber returns the panel holding `number` in (year, semester);
		// ErrPanelNotFound if unassigned.
		GetPanelByNumber(ctx context.Context, number, year, semester int) (Panel, error)
		QueryPanels(ctx context.Context, filter Filter) ([]Panel, error)
		UpdatePanel(ctx context.Context, p Panel) (Panel, error)
		DeletePanel(ctx context.Context, id string) error

		GetMarksByRequest(ctx context.Context, requestID string) (MarksRecord, error)
		// SaveMarks upserts the record and rewrites the request's roster
		// marks and evaluation flags in a single transaction.
		SaveMarks(ctx context.Context, rec MarksRecord, req request.Request) (MarksRecord, error)
	}

	Service struct {
		repo     Repository
		requests request.Repository
		users    user.Repository
	}
)

func NewService(repo Repository, requests request.Repository, users user.Repository) Service {
	return Service{repo: repo, requests: requests, users: users}
}

// AssignPanel resolves the seats and persists the panel. Non-manual seats
// must match a directory account by email; a duplicate panel number within
// (year, semester) is a conflict.
func (svc Service) AssignPanel(ctx context.Context, np NewPanel) (Panel, error) {
	if _, err := svc.repo.GetPanelByNumber(ctx, np.Number, np.Year, np.Semester); err == nil {
		return Panel{}, core.NewConflictError(ErrPanelExists)
	} else if err != ErrPanelNotFound {
		return Panel{}, err
	}

	chair, err := svc.resolveSeat(ctx, np.Chair, "chair")
	if err != nil {
		return Panel{}, err
	}
	members := make([]Evaluator, 0, len(np.Members))
	for i, seat := range np.Members {
		ev, err := svc.resolveSeat(ctx, seat, memberField(i))
		if err != nil {
			return Panel{}, err
		}
		members = append(members, ev)
	}

	now := time.Now().UTC()
	p := Panel{
		Number:    np.Number,
		Year:      np.Year,
		Semester:  np.Semester,
		Chair:     chair,
		Members:   members,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreatePanel(ctx, p)
}

// UpdatePanel re-resolves the seats and rewrites the panel in place. Moving
// the panel to a number already held by another panel is a conflict.
func (svc Service) UpdatePanel(ctx context.Context, id string, np NewPanel) (Panel, error) {
	p, err := svc.repo.GetPanelByID(ctx, id)
	if err != nil {
		return Panel{}, err
	}
	if other, err := svc.repo.GetPanelByNumber(ctx, np.Number, np.Year, np.Semester); err == nil {
		if other.ID != p.ID {
			return Panel{}, core.NewConflictError(ErrPanelExists)
		}
	} else if err != ErrPanelNotFound {
		return Panel{}, err
	}

	chair, err := svc.resolveSeat(ctx, np.Chair, "chair")
	if err != nil {
		return Panel{}, err
	}
	members := make([]Evaluator, 0, len(np.Members))
	for i, seat := range np.Members {
		ev, err := svc.resolveSeat(ctx, seat, memberField(i))
		if err != nil {
			return Panel{}, err
		}
		members = append(members, ev)
	}

	p.Number = np.Number
	p.Year = np.Year
	p.Semester = np.Semester
	p.Chair = chair
	p.Members = members
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePanel(ctx, p)
}

func (svc Service) GetPanel(ctx context.Context, id string) (Panel, error) {
	return svc.repo.GetPanelByID(ctx, id)
}

// ListPanels returns the panels of the given years, newest year first when
// the repository orders them so. Years must be explicit; there is no
// implicit "current year" default.
func (svc Service) ListPanels(ctx context.Context, years []int, semester int) ([]Panel, error) {
	if len(years) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "years", Error: "at least one year is required"})
	}
	return svc.repo.QueryPanels(ctx, Filter{Years: years, Semester: semester})
}

// PanelsForFaculty lists panels on which the faculty holds any seat.
func (svc Service) PanelsForFaculty(ctx context.Context, facultyID string) ([]Panel, error) {
	return svc.repo.QueryPanels(ctx, Filter{FacultyID: facultyID})
}

func (svc Service) DeletePanel(ctx context.Context, id string) error {
	return svc.repo.DeletePanel(ctx, id)
}

func (svc Service) GetMarks(ctx context.Context, requestID string) (MarksRecord, error) {
	return svc.repo.GetMarksByRequest(ctx, requestID)
}

// SubmitPhaseMarks records one phase's scores for a project group. The phase
// score of each member is derived here; when both phases are in, the roster
// total and letter grade are fixed. The other phase's marks are never touched,
// and a phase already on record cannot be submitted again.
func (svc Service) SubmitPhaseMarks(ctx context.Context, ps PhaseSubmission) (MarksRecord, error) {
	req, err := svc.requests.GetRequestByID(ctx, ps.RequestID)
	if err != nil {
		return MarksRecord{}, err
	}
	panel, err := svc.repo.GetPanelByID(ctx, ps.PanelID)
	if err != nil {
		return MarksRecord{}, err
	}

	rec, err := svc.repo.GetMarksByRequest(ctx, ps.RequestID)
	if err == ErrMarksNotFound {
		now := time.Now().UTC()
		rec = MarksRecord{
			RequestID: req.ID,
			PanelID:   panel.ID,
			Year:      req.Year,
			Semester:  req.Semester,
			Batch:     req.Batch,
			GroupNo:   req.GroupNo,
			CreatedAt: now,
		}
	} else if err != nil {
		return MarksRecord{}, err
	}
	if rec.Phase(ps.Phase) != nil {
		return MarksRecord{}, core.NewConflictError(ErrPhaseEvaluated)
	}

	phase := &PhaseEvaluation{EvaluatedAt: time.Now().UTC()}
	for _, m := range ps.Members {
		member := req.Member(m.StudentID)
		if member == nil {
			return MarksRecord{}, core.NewValidationError(nil, core.FieldError{
				Field: "members",
				Error: "student " + m.StudentID + " is not on this project's team",
			})
		}
		score := PhaseScore(m.ChairMarks, m.Eval2Marks, m.Eval3Marks)
		phase.Members = append(phase.Members, MemberMarks{
			StudentID:  m.StudentID,
			ChairMarks: m.ChairMarks,
			Eval2Marks: m.Eval2Marks,
			Eval3Marks: m.Eval3Marks,
			Score:      score,
		})

		switch ps.Phase {
		case PhaseMidTerm:
			s := score
			member.MidTermMarks = &s
		case PhaseEndTerm:
			s := score
			member.EndTermMarks = &s
		}
		if member.MidTermMarks != nil && member.EndTermMarks != nil {
			total := *member.MidTermMarks + *member.EndTermMarks
			grade := Grade(total)
			member.TotalMarks = &total
			member.Grade = &grade
		}
	}

	switch ps.Phase {
	case PhaseMidTerm:
		rec.MidTerm = phase
		req.MidTermEvaluated = true
	case PhaseEndTerm:
		rec.EndTerm = phase
		req.EndTermEvaluated = true
	}
	rec.PanelID = panel.ID
	rec.UpdatedAt = time.Now().UTC()
	req.ChairID = chairRef(panel)
	req.UpdatedAt = rec.UpdatedAt

	rec, err = svc.repo.SaveMarks(ctx, rec, req)
	if err != nil {
		return MarksRecord{}, err
	}
	return rec, nil
}

func (svc Service) resolveSeat(ctx context.Context, seat NewSeat, field string) (Evaluator, error) {
	ev := Evaluator{Name: seat.Name, Email: seat.Email, IsManual: seat.IsManual}
	if seat.IsManual {
		return ev, nil
	}
	usr, err := svc.users.GetUserByEmail(ctx, seat.Email)
	if err != nil {
		if err == user.ErrNotFound {
			return Evaluator{}, core.NewValidationError(ErrSeatNotResolved, core.FieldError{
				Field: field,
				Error: ErrSeatNotResolved.Error(),
			})
		}
		return Evaluator{}, err
	}
	ev.FacultyID = usr.ID
	ev.Name = usr.Name
	return ev, nil
}

func chairRef(p Panel) *string {
	if p.Chair.IsManual || p.Chair.FacultyID == "" {
		return nil
	}
	id := p.Chair.FacultyID
	return &id
}

func memberField(i int) string {
	if i == 0 {
		return "evaluator2"
	}
	return "evaluator3"
}
