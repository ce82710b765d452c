package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sparshv/projportal/core/group"
)

type groupApi struct {
	svc group.Service
}

func registerGroupAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc group.Service) {
	api := groupApi{svc: svc}

	gg := g.Group("/group-settings", jwt)

	gg.GET("/current", api.retrieveCurrent)
	gg.GET("", api.query, adminMiddleware())
	gg.POST("", api.create, adminMiddleware())
	gg.PUT("/:id", api.update, adminMiddleware())
	gg.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *groupApi) create(ctx echo.Context) error {
	var data group.NewSetting
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSetting")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	s, err := api.svc.Save(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *groupApi) query(ctx echo.Context) error {
	settings, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying group settings")
	}
	if settings == nil {
		settings = []group.Setting{}
	}
	return ctx.JSON(http.StatusOK, settings)
}

// retrieveCurrent returns the policy of (semester, year); students check it
// before submitting.
func (api *groupApi) retrieveCurrent(ctx echo.Context) error {
	semester, _ := strconv.Atoi(ctx.QueryParam("semester"))
	year, _ := strconv.Atoi(ctx.QueryParam("year"))

	s, err := api.svc.GetFor(ctx.Request().Context(), semester, year)
	if err != nil {
		if errors.Cause(err) == group.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding group setting")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *groupApi) update(ctx echo.Context) error {
	var data group.NewSetting
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSetting")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == group.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *groupApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting group setting")
	}
	return ctx.NoContent(http.StatusNoContent)
}
