package request

import (
	"time"

	"github.com/sparshv/projportal/core"
)

// Statuses
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

type (
	// Request is a project proposal submitted by a student team to a
	// supervising faculty member.
	Request struct {
		ID          string       `json:"id"`
		GroupNo     int          `json:"group_no"` // dense 1-based sequence per (semester, batch); 0 until accepted
		Batch       int          `json:"batch"`
		Year        int          `json:"year"`
		Semester    int          `json:"semester"`
		Title       string       `json:"title"`
		Content     string       `json:"content"`
		FacultyID   string       `json:"faculty_id"`
		FacultyName string       `json:"faculty_name"` // snapshot; not kept in sync with the directory
		TeamMembers []TeamMember `json:"team_members"`
		Approved    bool         `json:"approved"`
		Status      string       `json:"status"`

		MidTermEvaluated   bool    `json:"mid_term_evaluated"`
		EndTermEvaluated   bool    `json:"end_term_evaluated"`
		ChairID            *string `json:"chair_id"`
		EvaluationRecordID *string `json:"evaluation_record_id"`

		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	TeamMember struct {
		StudentID    string  `json:"student_id"`
		Name         string  `json:"name"`
		Roll         int     `json:"roll"`
		Branch       string  `json:"branch"`
		MidTermMarks *int    `json:"mid_term_marks"`
		EndTermMarks *int    `json:"end_term_marks"`
		TotalMarks   *int    `json:"total_marks"`
		Grade        *string `json:"grade"`
	}
)

func (r *Request) IsDecided() bool { return r.Status != StatusPending }

// Member returns a pointer into TeamMembers for the given student, nil if absent.
func (r *Request) Member(studentID string) *TeamMember {
	for i := range r.TeamMembers {
		if r.TeamMembers[i].StudentID == studentID {
			return &r.TeamMembers[i]
		}
	}
	return nil
}

// NewRequest contains information needed to submit a proposal. The first
// team member is the submitting student.
type NewRequest struct {
	Title       string          `json:"title" validate:"required"`
	Content     string          `json:"content" validate:"required"`
	FacultyID   string          `json:"faculty_id" validate:"required"`
	FacultyName string          `json:"faculty_name" validate:"required"`
	Year        int             `json:"year" validate:"required,min=2000"`
	Semester    int             `json:"semester" validate:"required,min=1,max=8"`
	Batch       int             `json:"batch" validate:"required,min=2000"`
	TeamMembers []NewTeamMember `json:"team_members" validate:"required,min=1,dive"`
}

type NewTeamMember struct {
	StudentID string `json:"student_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Roll      int    `json:"roll" validate:"required"`
	Branch    string `json:"branch" validate:"required"`
}

func (nr *NewRequest) Validate() error {
	nr.Title = core.CleanString(nr.Title)
	nr.Content = core.CleanString(nr.Content)
	return core.Validate.Struct(nr)
}

// DecideRequest is the faculty decision on a pending proposal.
type DecideRequest struct {
	RequestID string `json:"request_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=accepted rejected"`
}

func (d *DecideRequest) Validate() error { return core.Validate.Struct(d) }

// Filter selects requests; zero fields are ignored.
type Filter struct {
	FacultyID  string
	FacultyIDs []string
	Status     string
	Approved   *bool
	Year       int
	Semester   int
	Batch      int

	// order results by (batch, group_no) ascending
	OrderByGroupNo bool
}
