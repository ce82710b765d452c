package group

import "github.com/sparshv/projportal/core"

// Setting is the admin-configured group policy for one (semester, year):
// how many groups a faculty may supervise, how large a group may be, and
// whether the submission window is open.
type Setting struct {
	ID         string `json:"id"`
	Semester   int    `json:"semester"`
	Year       int    `json:"year"`
	Batch      int    `json:"batch"` // admission year derived from (year, semester)
	MaxGroups  int    `json:"max_groups"`
	MaxMembers int    `json:"max_members"`
	OpenWindow bool   `json:"open_window"`
	Deadline   string `json:"deadline"`
}

// Batch derives the admission year of the cohort sitting in `semester`
// during `year`.
func Batch(semester, year int) int {
	return year - semester/2
}

// NewSetting contains information needed to save a group policy.
type NewSetting struct {
	Semester   int    `json:"semester" validate:"required,min=1,max=8"`
	Year       int    `json:"year" validate:"required,min=2000"`
	MaxGroups  int    `json:"max_groups" validate:"required,min=1"`
	MaxMembers int    `json:"max_members" validate:"required,min=1"`
	OpenWindow bool   `json:"open_window"`
	Deadline   string `json:"deadline" validate:"required"`
}

func (ns *NewSetting) Validate() error {
	ns.Deadline = core.CleanString(ns.Deadline)
	return core.Validate.Struct(ns)
}
