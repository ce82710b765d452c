package request

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/sparshv/projportal/core"
	"github.com/sparshv/projportal/core/group"
	"github.com/sparshv/projportal/core/load"
	"github.com/sparshv/projportal/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("request not found")
	ErrAlreadyDecided     = errors.New("request has already been decided")
	ErrFacultyLoadMissing = errors.New("faculty load record not found for this semester and year")
	ErrFacultyAtCapacity  = errors.New("this faculty has no remaining supervision capacity this semester")
	ErrWindowClosed       = errors.New("the submission window for this semester is closed")
)

type (
	Repository interface {
		CreateRequest(ctx context.Context, req Request) (Request, error)
		GetRequestByID(ctx context.Context, id string) (Request, error)
		// GetRequestByTeamMember finds the request carrying the student on
		// its roster for the given semester.
		GetRequestByTeamMember(ctx context.Context, studentID string, semester int) (Request, error)
		QueryRequests(ctx context.Context, filter Filter) ([]Request, error)
		// ActiveStudentIDs lists students already on a pending or accepted
		// team in (semester, batch).
		ActiveStudentIDs(ctx context.Context, semester, batch int) ([]string, error)
		// AcceptRequest atomically flips a pending request to accepted,
		// assigns the next dense group number of (semester, batch) and
		// charges the supervising faculty's load for (year, semester).
		// ErrAlreadyDecided if the request is not pending;
		// ErrFacultyLoadMissing if the faculty has no load row to charge.
		AcceptRequest(ctx context.Context, id string) (Request, error)
		// RejectRequest flips a pending request to rejected.
		RejectRequest(ctx context.Context, id string) (Request, error)
	}

	Service struct {
		repo     Repository
		settings group.Repository
		loads    load.Repository
		users    user.Repository
		mailSvc  core.EmailService
	}
)

func NewService(repo Repository, settings group.Repository, loads load.Repository, users user.Repository, mailSvc core.EmailService) Service {
	return Service{repo: repo, settings: settings, loads: loads, users: users, mailSvc: mailSvc}
}

// Submit creates a pending proposal. The submission window of the cohort's
// group policy and the supervisor's remaining capacity are enforced here,
// not in the client.
func (svc Service) Submit(ctx context.Context, nr NewRequest) (Request, error) {
	if s, err := svc.settings.GetSettingFor(ctx, nr.Semester, nr.Year); err == nil {
		if !s.OpenWindow {
			return Request{}, core.NewConflictError(ErrWindowClosed)
		}
		if len(nr.TeamMembers) > s.MaxMembers {
			return Request{}, core.NewValidationError(nil, core.FieldError{
				Field: "team_members",
				Error: fmt.Sprintf("a group may have at most %d members", s.MaxMembers),
			})
		}
	} else if err != group.ErrNotFound {
		return Request{}, err
	}

	if fl, err := svc.loads.GetLoad(ctx, nr.FacultyID, nr.Year, nr.Semester); err == nil {
		if !fl.HasCapacity(len(nr.TeamMembers)) {
			return Request{}, core.NewConflictError(ErrFacultyAtCapacity)
		}
	} else if err != load.ErrNotFound {
		return Request{}, err
	}

	now := time.Now().UTC()
	req := Request{
		Title:       nr.Title,
		Content:     nr.Content,
		FacultyID:   nr.FacultyID,
		FacultyName: nr.FacultyName,
		Year:        nr.Year,
		Semester:    nr.Semester,
		Batch:       nr.Batch,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, m := range nr.TeamMembers {
		req.TeamMembers = append(req.TeamMembers, TeamMember{
			StudentID: m.StudentID,
			Name:      m.Name,
			Roll:      m.Roll,
			Branch:    m.Branch,
		})
	}

	req, err := svc.repo.CreateRequest(ctx, req)
	if err != nil {
		return Request{}, err
	}
	svc.notifyFaculty(ctx, req)
	return req, nil
}

// Decide applies the faculty decision. Acceptance is a single atomic
// operation: status CAS, group-number assignment and load charge happen
// together or not at all; a second decision on the same request fails.
func (svc Service) Decide(ctx context.Context, d DecideRequest) (Request, error) {
	var req Request
	var err error
	switch d.Status {
	case StatusAccepted:
		req, err = svc.repo.AcceptRequest(ctx, d.RequestID)
	case StatusRejected:
		req, err = svc.repo.RejectRequest(ctx, d.RequestID)
	default:
		return Request{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "must be accepted or rejected"})
	}
	if err != nil {
		if err == ErrAlreadyDecided {
			return Request{}, core.NewConflictError(err)
		}
		return Request{}, err
	}
	svc.notifyTeam(ctx, req)
	return req, nil
}

func (svc Service) GetByID(ctx context.Context, id string) (Request, error) {
	return svc.repo.GetRequestByID(ctx, id)
}

func (svc Service) PendingForFaculty(ctx context.Context, facultyID string) ([]Request, error) {
	return svc.repo.QueryRequests(ctx, Filter{FacultyID: facultyID, Status: StatusPending})
}

func (svc Service) ApprovedForFaculty(ctx context.Context, facultyID string, semester, year int) ([]Request, error) {
	approved := true
	return svc.repo.QueryRequests(ctx, Filter{
		FacultyID: facultyID,
		Approved:  &approved,
		Semester:  semester,
		Year:      year,
	})
}

func (svc Service) FindByTeamMember(ctx context.Context, studentID string, semester int) (Request, error) {
	return svc.repo.GetRequestByTeamMember(ctx, studentID, semester)
}

// ProjectsForEvaluators lists the approved projects supervised by any
// evaluator on a panel.
func (svc Service) ProjectsForEvaluators(ctx context.Context, facultyIDs []string, semester, year int) ([]Request, error) {
	if len(facultyIDs) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "faculty_ids", Error: "no evaluators provided"})
	}
	approved := true
	return svc.repo.QueryRequests(ctx, Filter{
		FacultyIDs: facultyIDs,
		Approved:   &approved,
		Semester:   semester,
		Year:       year,
	})
}

// ByYearSemester lists the approved projects of (year, semester) ordered by
// (batch, group number) for reporting.
func (svc Service) ByYearSemester(ctx context.Context, year, semester int) ([]Request, error) {
	approved := true
	return svc.repo.QueryRequests(ctx, Filter{
		Approved:       &approved,
		Year:           year,
		Semester:       semester,
		OrderByGroupNo: true,
	})
}

func (svc Service) ActiveStudentIDs(ctx context.Context, semester, batch int) ([]string, error) {
	return svc.repo.ActiveStudentIDs(ctx, semester, batch)
}

// notifyFaculty mails the chosen supervisor about a new proposal. Best effort.
func (svc Service) notifyFaculty(ctx context.Context, req Request) {
	if svc.mailSvc == nil || svc.users == nil {
		return
	}
	fac, err := svc.users.GetUserByID(ctx, req.FacultyID)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: fac.Name, Address: fac.Email}},
		Subject: "New project request: " + req.Title,
		BodyStr: fmt.Sprintf(
			"A team of %d students (semester %d, batch %d) has requested you to supervise %q.",
			len(req.TeamMembers), req.Semester, req.Batch, req.Title),
	})
}

// notifyTeam mails every team member the decision. Best effort.
func (svc Service) notifyTeam(ctx context.Context, req Request) {
	if svc.mailSvc == nil || svc.users == nil {
		return
	}
	to := make([]mail.Address, 0, len(req.TeamMembers))
	for _, m := range req.TeamMembers {
		stu, err := svc.users.GetUserByID(ctx, m.StudentID)
		if err != nil {
			continue
		}
		to = append(to, mail.Address{Name: stu.Name, Address: stu.Email})
	}
	if len(to) == 0 {
		return
	}
	msg := &core.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("Project request %s: %q", req.Status, req.Title),
	}
	if req.Status == StatusAccepted {
		msg.BodyStr = fmt.Sprintf("Your project %q was accepted by %s. Your group number is %d.",
			req.Title, req.FacultyName, req.GroupNo)
	} else {
		msg.BodyStr = fmt.Sprintf("Your project %q was rejected by %s.", req.Title, req.FacultyName)
	}
	svc.mailSvc.SendMessages(msg)
}
