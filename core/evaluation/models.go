package evaluation

import (
	"time"

	"github.com/sparshv/projportal/core"
)

// Evaluation phases
const (
	PhaseMidTerm = "Mid-Term"
	PhaseEndTerm = "End-Term"
)

var AllPhases = []string{PhaseMidTerm, PhaseEndTerm}

type (
	// Panel is an evaluation committee of one chair and two evaluators,
	// numbered uniquely within (year, semester).
	Panel struct {
		ID        string      `json:"id"`
		Number    int         `json:"number"`
		Year      int         `json:"year"`
		Semester  int         `json:"semester"`
		Chair     Evaluator   `json:"chair"`
		Members   []Evaluator `json:"members"`    // exactly two
		CreatedAt time.Time   `json:"created_at"` // UTC
		UpdatedAt time.Time   `json:"updated_at"` // UTC
	}

	// Evaluator is a panel seat. Internal evaluators carry the faculty's
	// directory ID; external (manual) ones carry only name and email.
	Evaluator struct {
		FacultyID string `json:"faculty_id"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		IsManual  bool   `json:"is_manual"`
	}

	// MarksRecord holds the scores of one project group across both phases.
	MarksRecord struct {
		ID        string           `json:"id"`
		RequestID string           `json:"request_id"`
		PanelID   string           `json:"panel_id"`
		Year      int              `json:"year"`
		Semester  int              `json:"semester"`
		Batch     int              `json:"batch"`
		GroupNo   int              `json:"group_no"`
		MidTerm   *PhaseEvaluation `json:"mid_term"`
		EndTerm   *PhaseEvaluation `json:"end_term"`
		CreatedAt time.Time        `json:"created_at"` // UTC
		UpdatedAt time.Time        `json:"updated_at"` // UTC
	}

	// PhaseEvaluation is one phase's scoring of every team member.
	PhaseEvaluation struct {
		EvaluatedAt time.Time     `json:"evaluated_at"` // UTC
		Members     []MemberMarks `json:"members"`
	}

	// MemberMarks carries one student's seat-level marks and the derived
	// phase score for one phase.
	MemberMarks struct {
		StudentID  string `json:"student_id"`
		ChairMarks int    `json:"chair_marks"`
		Eval2Marks int    `json:"eval2_marks"`
		Eval3Marks int    `json:"eval3_marks"`
		Score      int    `json:"score"`
	}
)

// Phase returns the evaluation of the named phase, nil when not yet scored.
func (mr *MarksRecord) Phase(phase string) *PhaseEvaluation {
	switch phase {
	case PhaseMidTerm:
		return mr.MidTerm
	case PhaseEndTerm:
		return mr.EndTerm
	}
	return nil
}

// NewPanel contains information needed to assign an evaluation panel.
// Seats are identified by faculty email; manual seats are external examiners
// not present in the directory.
type NewPanel struct {
	Number   int       `json:"number" validate:"required,min=1"`
	Year     int       `json:"year" validate:"required,min=2000"`
	Semester int       `json:"semester" validate:"required,min=1,max=8"`
	Chair    NewSeat   `json:"chair" validate:"required"`
	Members  []NewSeat `json:"members" validate:"required,len=2,dive"`
}

type NewSeat struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	IsManual bool   `json:"is_manual"`
}

func (np *NewPanel) Validate() error {
	np.Chair.clean()
	for i := range np.Members {
		np.Members[i].clean()
	}
	return core.Validate.Struct(np)
}

func (ns *NewSeat) clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true)
}

// PhaseSubmission contains a panel's marks for one project group in one phase.
type PhaseSubmission struct {
	RequestID string            `json:"request_id" validate:"required"`
	PanelID   string            `json:"panel_id" validate:"required"`
	Phase     string            `json:"phase" validate:"required,oneof=Mid-Term End-Term"`
	Members   []MarksSubmission `json:"members" validate:"required,min=1,dive"`
}

type MarksSubmission struct {
	StudentID  string `json:"student_id" validate:"required"`
	ChairMarks int    `json:"chair_marks" validate:"min=0,max=50"`
	Eval2Marks int    `json:"eval2_marks" validate:"min=0,max=50"`
	Eval3Marks int    `json:"eval3_marks" validate:"min=0,max=50"`
}

func (ps *PhaseSubmission) Validate() error { return core.Validate.Struct(ps) }

// Filter selects panels; zero fields are ignored.
type Filter struct {
	Year      int
	Years     []int
	Semester  int
	FacultyID string // matches any seat held by this faculty
}
