package load

import "github.com/sparshv/projportal/core"

// FacultyLoad tracks how many project groups and students a faculty member
// supervises in a given (year, semester) against the configured maxima.
type FacultyLoad struct {
	ID                 string `json:"id"`
	FacultyID          string `json:"faculty_id"`
	FacultyName        string `json:"faculty_name"` // snapshot; not kept in sync with the directory
	Year               int    `json:"year"`
	Semester           int    `json:"semester"`
	TotalGroups        int    `json:"total_groups"`
	TotalStudents      int    `json:"total_students"`
	MaxGroupsAllowed   int    `json:"max_groups_allowed"`
	MaxStudentsAllowed int    `json:"max_students_allowed"` // per group; total ceiling is max_groups_allowed * this
}

// HasCapacity reports whether one more group of teamSize students fits.
// Capacity is checked when a proposal is submitted; the accept path never
// rejects on it.
func (fl FacultyLoad) HasCapacity(teamSize int) bool {
	return fl.TotalGroups+1 <= fl.MaxGroupsAllowed &&
		fl.TotalStudents+teamSize <= fl.MaxStudentsAllowed*fl.MaxGroupsAllowed
}

// BumpLoad is the manual stats-adjustment input.
type BumpLoad struct {
	FacultyID string `json:"faculty_id" validate:"required"`
	Year      int    `json:"year" validate:"required"`
	Semester  int    `json:"semester" validate:"required,min=1,max=8"`
	Value     int    `json:"value" validate:"required,min=1"` // team size
}

func (b *BumpLoad) Validate() error { return core.Validate.Struct(b) }

type QueryFilter struct {
	FacultyID string `query:"facultyId"`
	Semester  int    `query:"semester"`
	Year      int    `query:"year"`
}
