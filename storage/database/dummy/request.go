package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sparshv/projportal/core/request"
)

type requestRepository struct {
	db *DB
}

var _ request.Repository = (*requestRepository)(nil) // interface compliance check

func NewRequestRepository(db *DB) request.Repository {
	return &requestRepository{db: db}
}

func (repo *requestRepository) query() []request.Request {
	reqs := make([]request.Request, 0, len(repo.db.requests))
	for _, r := range repo.db.requests {
		reqs = append(reqs, copyRequest(r))
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.Before(reqs[j].CreatedAt) })
	return reqs
}

func copyRequest(r *request.Request) request.Request {
	req := *r
	req.TeamMembers = append([]request.TeamMember(nil), r.TeamMembers...)
	return req
}

// acceptedCount is called with the lock held.
func (repo *requestRepository) acceptedCount(semester, batch int) int {
	var cnt int
	for _, r := range repo.db.requests {
		if r.Semester == semester && r.Batch == batch && r.Status == request.StatusAccepted {
			cnt++
		}
	}
	return cnt
}

func (repo *requestRepository) CreateRequest(ctx context.Context, req request.Request) (request.Request, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	req.ID = uuid.New().String()
	stored := copyRequest(&req)
	repo.db.requests[req.ID] = &stored
	return req, nil
}

func (repo *requestRepository) GetRequestByID(ctx context.Context, id string) (request.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if req, ok := repo.db.requests[id]; ok {
		return copyRequest(req), nil
	}
	return request.Request{}, request.ErrNotFound
}

func (repo *requestRepository) GetRequestByTeamMember(ctx context.Context, studentID string, semester int) (request.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var found *request.Request
	for _, r := range repo.db.requests {
		if r.Semester != semester || r.Member(studentID) == nil {
			continue
		}
		if found == nil || r.CreatedAt.After(found.CreatedAt) {
			found = r
		}
	}
	if found == nil {
		return request.Request{}, request.ErrNotFound
	}
	return copyRequest(found), nil
}

func (repo *requestRepository) QueryRequests(ctx context.Context, filter request.Filter) ([]request.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var reqs []request.Request
	for _, r := range repo.query() {
		if filter.FacultyID != "" && r.FacultyID != filter.FacultyID {
			continue
		}
		if len(filter.FacultyIDs) > 0 && !containsStr(filter.FacultyIDs, r.FacultyID) {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Approved != nil && r.Approved != *filter.Approved {
			continue
		}
		if filter.Year != 0 && r.Year != filter.Year {
			continue
		}
		if filter.Semester != 0 && r.Semester != filter.Semester {
			continue
		}
		if filter.Batch != 0 && r.Batch != filter.Batch {
			continue
		}
		reqs = append(reqs, r)
	}

	if filter.OrderByGroupNo {
		sort.Slice(reqs, func(i, j int) bool {
			if reqs[i].Batch != reqs[j].Batch {
				return reqs[i].Batch < reqs[j].Batch
			}
			return reqs[i].GroupNo < reqs[j].GroupNo
		})
	}
	return reqs, nil
}

func (repo *requestRepository) ActiveStudentIDs(ctx context.Context, semester, batch int) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, r := range repo.db.requests {
		if r.Semester != semester || r.Batch != batch || r.Status == request.StatusRejected {
			continue
		}
		for _, m := range r.TeamMembers {
			if _, ok := seen[m.StudentID]; !ok {
				seen[m.StudentID] = struct{}{}
				ids = append(ids, m.StudentID)
			}
		}
	}
	return ids, nil
}

func (repo *requestRepository) AcceptRequest(ctx context.Context, id string) (request.Request, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	req, ok := repo.db.requests[id]
	if !ok {
		return request.Request{}, request.ErrNotFound
	}
	if req.IsDecided() {
		return request.Request{}, request.ErrAlreadyDecided
	}

	// charge the faculty load first so a missing row leaves the request pending
	var charged bool
	for _, fl := range repo.db.loads {
		if fl.FacultyID == req.FacultyID && fl.Year == req.Year && fl.Semester == req.Semester {
			fl.TotalGroups++
			fl.TotalStudents += len(req.TeamMembers)
			charged = true
			break
		}
	}
	if !charged {
		return request.Request{}, request.ErrFacultyLoadMissing
	}

	req.Status = request.StatusAccepted
	req.Approved = true
	req.GroupNo = repo.acceptedCount(req.Semester, req.Batch)
	req.UpdatedAt = time.Now().UTC()
	return copyRequest(req), nil
}

func (repo *requestRepository) RejectRequest(ctx context.Context, id string) (request.Request, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	req, ok := repo.db.requests[id]
	if !ok {
		return request.Request{}, request.ErrNotFound
	}
	if req.IsDecided() {
		return request.Request{}, request.ErrAlreadyDecided
	}

	req.Status = request.StatusRejected
	req.Approved = false
	req.UpdatedAt = time.Now().UTC()
	return copyRequest(req), nil
}

func containsStr(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
