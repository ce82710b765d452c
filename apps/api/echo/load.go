package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sparshv/projportal/core/load"
)

type loadApi struct {
	svc load.Service
}

func registerLoadAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc load.Service) {
	api := loadApi{svc: svc}

	lg := g.Group("/faculty-load", jwt)

	lg.GET("", api.query)
	lg.GET("/:facultyId", api.retrieve)
	lg.PUT("", api.bump, adminMiddleware())
}

// Handlers

func (api *loadApi) query(ctx echo.Context) error {
	var filter load.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []load.FacultyLoad{})
	}

	loads, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying faculty loads")
	}
	if loads == nil {
		loads = []load.FacultyLoad{}
	}
	return ctx.JSON(http.StatusOK, loads)
}

func (api *loadApi) retrieve(ctx echo.Context) error {
	year, _ := strconv.Atoi(ctx.QueryParam("year"))
	semester, _ := strconv.Atoi(ctx.QueryParam("semester"))

	fl, err := api.svc.Get(ctx.Request().Context(), ctx.Param("facultyId"), year, semester)
	if err != nil {
		if errors.Cause(err) == load.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding faculty load")
	}
	return ctx.JSON(http.StatusOK, fl)
}

// bump is a manual stats correction; the accept workflow charges load on its own.
func (api *loadApi) bump(ctx echo.Context) error {
	var data load.BumpLoad
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BumpLoad")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	fl, err := api.svc.Bump(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == load.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "bumping faculty load")
	}
	return ctx.JSON(http.StatusOK, fl)
}
