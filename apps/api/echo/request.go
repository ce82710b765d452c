package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sparshv/projportal/core/request"
	"github.com/sparshv/projportal/core/user"
)

type requestApi struct {
	svc     request.Service
	userSvc user.Service
}

func registerRequestAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc request.Service, userSvc user.Service) {
	api := requestApi{svc: svc, userSvc: userSvc}

	rg := g.Group("/requests", jwt)

	rg.POST("", api.submit, studentMiddleware())
	rg.GET("/mine", api.findMine, studentMiddleware())
	rg.GET("/pending", api.queryPending, facultyMiddleware())
	rg.GET("/accepted", api.queryAccepted, facultyMiddleware())
	rg.PUT("/decide", api.decide, facultyMiddleware())
	rg.GET("/by-year", api.queryByYear, facultyMiddleware())
	rg.GET("/active-students", api.queryActiveStudents, facultyMiddleware())
	rg.GET("/:id", api.retrieve)
}

// Handlers

func (api *requestApi) submit(ctx echo.Context) error {
	var data request.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	req, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, req)
}

// findMine returns the calling student's own request for the given semester.
func (api *requestApi) findMine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	semester, _ := strconv.Atoi(ctx.QueryParam("semester"))
	if semester == 0 {
		semester = ctxUsr.Semester
	}

	req, err := api.svc.FindByTeamMember(ctx.Request().Context(), ctxUsr.ID, semester)
	if err != nil {
		if errors.Cause(err) == request.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding request by team member")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *requestApi) queryPending(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	reqs, err := api.svc.PendingForFaculty(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying pending requests")
	}
	if reqs == nil {
		reqs = []request.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *requestApi) queryAccepted(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	semester, _ := strconv.Atoi(ctx.QueryParam("semester"))
	year, _ := strconv.Atoi(ctx.QueryParam("year"))

	reqs, err := api.svc.ApprovedForFaculty(ctx.Request().Context(), ctxUsr.ID, semester, year)
	if err != nil {
		return errors.Wrap(err, "querying accepted requests")
	}
	if reqs == nil {
		reqs = []request.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *requestApi) decide(ctx echo.Context) error {
	var data request.DecideRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DecideRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	// faculty may only decide their own requests
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	req, err := api.svc.GetByID(ctx.Request().Context(), data.RequestID)
	if err != nil {
		if errors.Cause(err) == request.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding request by ID")
	}
	if !ctxUsr.IsAdmin() && req.FacultyID != ctxUsr.ID {
		return errHttpForbidden
	}

	req, err = api.svc.Decide(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, req)
}

// queryByYear lists accepted projects of (year, semester) ordered by group number.
func (api *requestApi) queryByYear(ctx echo.Context) error {
	year, _ := strconv.Atoi(ctx.QueryParam("year"))
	semester, _ := strconv.Atoi(ctx.QueryParam("semester"))

	reqs, err := api.svc.ByYearSemester(ctx.Request().Context(), year, semester)
	if err != nil {
		return errors.Wrap(err, "querying requests by year")
	}
	if reqs == nil {
		reqs = []request.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

// queryActiveStudents lists students already engaged on a team in (semester, batch).
func (api *requestApi) queryActiveStudents(ctx echo.Context) error {
	semester, _ := strconv.Atoi(ctx.QueryParam("semester"))
	batch, _ := strconv.Atoi(ctx.QueryParam("batch"))

	ids, err := api.svc.ActiveStudentIDs(ctx.Request().Context(), semester, batch)
	if err != nil {
		return errors.Wrap(err, "querying active students")
	}
	if ids == nil {
		ids = []string{}
	}
	return ctx.JSON(http.StatusOK, ids)
}

func (api *requestApi) retrieve(ctx echo.Context) error {
	req, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == request.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding request by ID")
	}

	// a student may only see their own request
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsStudent() && req.Member(ctxUsr.ID) == nil {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, req)
}
