package dummydb

import (
	"sync"

	"github.com/sparshv/projportal/core/evaluation"
	"github.com/sparshv/projportal/core/group"
	"github.com/sparshv/projportal/core/load"
	"github.com/sparshv/projportal/core/request"
	"github.com/sparshv/projportal/core/user"
)

// DB is an in-memory stand-in for the real database. One mutex guards all
// tables so compound operations (accept + load charge, marks + roster) stay
// atomic like their SQL counterparts.
type DB struct {
	mu sync.RWMutex

	users    map[string]*user.User
	requests map[string]*request.Request
	loads    map[string]*load.FacultyLoad
	settings map[string]*group.Setting
	panels   map[string]*evaluation.Panel
	marks    map[string]*evaluation.MarksRecord // keyed by request ID
}

func Open() (*DB, error) {
	db := &DB{
		users:    make(map[string]*user.User),
		requests: make(map[string]*request.Request),
		loads:    make(map[string]*load.FacultyLoad),
		settings: make(map[string]*group.Setting),
		panels:   make(map[string]*evaluation.Panel),
		marks:    make(map[string]*evaluation.MarksRecord),
	}
	return db, nil
}
