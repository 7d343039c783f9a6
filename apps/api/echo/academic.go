package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/silabo/core/academic"
)

type academicApi struct {
	svc *academic.Service
}

func registerAcademicAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *academic.Service) {
	api := academicApi{svc: svc}

	ag := g.Group("/academic-years", jwt)
	ag.GET("", api.query)
	ag.GET("/active", api.retrieveActive)
	ag.POST("", api.create, adminMiddleware())
	ag.POST("/:id/activate", api.activate, adminMiddleware())
	ag.POST("/:id/deactivate", api.deactivate, adminMiddleware())
	ag.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *academicApi) query(ctx echo.Context) error {
	years, err := api.svc.QueryAll()
	if err != nil {
		return errors.Wrap(err, "querying academic years")
	}
	if years == nil {
		years = []academic.AcademicYear{}
	}
	return ctx.JSON(http.StatusOK, years)
}

func (api *academicApi) retrieveActive(ctx echo.Context) error {
	y, err := api.svc.GetActive()
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting active academic year")
	}
	return ctx.JSON(http.StatusOK, y)
}

func (api *academicApi) create(ctx echo.Context) error {
	var data academic.NewAcademicYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAcademicYear")
	}

	y, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating academic year")
	}
	return ctx.JSON(http.StatusCreated, y)
}

func (api *academicApi) activate(ctx echo.Context) error {
	y, err := api.svc.Activate(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "activating academic year")
	}
	return ctx.JSON(http.StatusOK, y)
}

func (api *academicApi) deactivate(ctx echo.Context) error {
	y, err := api.svc.Deactivate(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deactivating academic year")
	}
	return ctx.JSON(http.StatusOK, y)
}

func (api *academicApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting academic year")
	}
	return ctx.NoContent(http.StatusNoContent)
}
