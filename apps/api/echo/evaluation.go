package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sparshv/projportal/core/evaluation"
	"github.com/sparshv/projportal/core/request"
)

type evaluationApi struct {
	svc        evaluation.Service
	requestSvc request.Service
}

func registerEvaluationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc evaluation.Service, requestSvc request.Service) {
	api := evaluationApi{svc: svc, requestSvc: requestSvc}

	pg := g.Group("/panels", jwt)
	pg.POST("", api.createPanel, adminMiddleware())
	pg.GET("", api.queryPanels, facultyMiddleware())
	pg.GET("/projects", api.queryPanelProjects, facultyMiddleware())
	pg.PUT("/:id", api.updatePanel, adminMiddleware())
	pg.DELETE("/:id", api.destroyPanel, adminMiddleware())

	mg := g.Group("/marks", jwt)
	mg.POST("", api.submitMarks, facultyMiddleware())
	mg.GET("/:requestId", api.retrieveMarks, facultyMiddleware())
}

// Handlers

func (api *evaluationApi) createPanel(ctx echo.Context) error {
	var data evaluation.NewPanel
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPanel")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.AssignPanel(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}

// queryPanels lists panels. With ?mine=true it returns the panels the calling
// faculty sits on; otherwise explicit year params are required.
func (api *evaluationApi) queryPanels(ctx echo.Context) error {
	if ctx.QueryParam("mine") == "true" {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		panels, err := api.svc.PanelsForFaculty(ctx.Request().Context(), claims.Subject)
		if err != nil {
			return errors.Wrap(err, "querying faculty panels")
		}
		if panels == nil {
			panels = []evaluation.Panel{}
		}
		return ctx.JSON(http.StatusOK, panels)
	}

	var years []int
	for _, y := range ctx.QueryParams()["year"] {
		if year, err := strconv.Atoi(y); err == nil {
			years = append(years, year)
		}
	}
	semester, _ := strconv.Atoi(ctx.QueryParam("semester"))

	panels, err := api.svc.ListPanels(ctx.Request().Context(), years, semester)
	if err != nil {
		return err
	}
	if panels == nil {
		panels = []evaluation.Panel{}
	}
	return ctx.JSON(http.StatusOK, panels)
}

// queryPanelProjects lists the approved projects supervised by any member of
// the given panel, for the evaluation roster.
func (api *evaluationApi) queryPanelProjects(ctx echo.Context) error {
	panelID := ctx.QueryParam("panel_id")
	p, err := api.svc.GetPanel(ctx.Request().Context(), panelID)
	if err != nil {
		if errors.Cause(err) == evaluation.ErrPanelNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding panel by ID")
	}

	var facultyIDs []string
	if p.Chair.FacultyID != "" {
		facultyIDs = append(facultyIDs, p.Chair.FacultyID)
	}
	for _, m := range p.Members {
		if m.FacultyID != "" {
			facultyIDs = append(facultyIDs, m.FacultyID)
		}
	}

	reqs, err := api.requestSvc.ProjectsForEvaluators(ctx.Request().Context(), facultyIDs, p.Semester, p.Year)
	if err != nil {
		return err
	}
	if reqs == nil {
		reqs = []request.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *evaluationApi) updatePanel(ctx echo.Context) error {
	var data evaluation.NewPanel
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPanel")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.UpdatePanel(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == evaluation.ErrPanelNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *evaluationApi) destroyPanel(ctx echo.Context) error {
	if err := api.svc.DeletePanel(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting panel")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *evaluationApi) submitMarks(ctx echo.Context) error {
	var data evaluation.PhaseSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PhaseSubmission")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rec, err := api.svc.SubmitPhaseMarks(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == request.ErrNotFound || errors.Cause(err) == evaluation.ErrPanelNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *evaluationApi) retrieveMarks(ctx echo.Context) error {
	rec, err := api.svc.GetMarks(ctx.Request().Context(), ctx.Param("requestId"))
	if err != nil {
		if errors.Cause(err) == evaluation.ErrMarksNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding evaluation record")
	}
	return ctx.JSON(http.StatusOK, rec)
}
