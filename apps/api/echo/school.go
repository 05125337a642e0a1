package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/school"
)

type schoolAPI struct {
	opts     *Options
	validate *validator.Validate
}

func registerSchoolAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	opts *Options,
	validate *validator.Validate,
) {
	api := schoolAPI{opts: opts, validate: validate}

	eg := g.Group("/establishments", jwt)
	eg.GET("", api.queryEstablishments)
	eg.GET("/:id", api.retrieveEstablishment)
	eg.POST("", api.createEstablishment, privilegeMiddleware(role.PrivManageEstablishments))
	eg.DELETE("/:id", api.destroyEstablishment, privilegeMiddleware(role.PrivDeleteData))
	eg.GET("/:id/classrooms", api.queryClassrooms)

	cg := g.Group("/classrooms", jwt, privilegeMiddleware(role.PrivManageClassrooms))
	cg.POST("", api.createClassroom)
	cg.DELETE("/:id", api.destroyClassroom)

	mg := g.Group("/commissions", jwt)
	mg.GET("", api.queryCommissions)
	mg.GET("/:id", api.retrieveCommission)
	mg.POST("", api.createCommission, privilegeMiddleware(role.PrivManageCommissions))
	mg.DELETE("/:id", api.destroyCommission, privilegeMiddleware(role.PrivManageCommissions))
}

// Establishments

func (api *schoolAPI) queryEstablishments(ctx echo.Context) error {
	out, err := api.opts.SchoolSvc.QueryEstablishments(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying establishments")
	}
	if out == nil {
		out = []school.Establishment{}
	}
	return respond(ctx, http.StatusOK, out)
}

func (api *schoolAPI) retrieveEstablishment(ctx echo.Context) error {
	e, err := api.opts.SchoolSvc.GetEstablishment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, e)
}

func (api *schoolAPI) createEstablishment(ctx echo.Context) error {
	var data school.NewEstablishment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEstablishment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.opts.SchoolSvc.CreateEstablishment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating establishment")
	}
	return respond(ctx, http.StatusCreated, e)
}

func (api *schoolAPI) destroyEstablishment(ctx echo.Context) error {
	if err := api.opts.SchoolSvc.DeleteEstablishment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Classrooms

func (api *schoolAPI) queryClassrooms(ctx echo.Context) error {
	out, err := api.opts.SchoolSvc.QueryClassrooms(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	if out == nil {
		out = []school.Classroom{}
	}
	return respond(ctx, http.StatusOK, out)
}

func (api *schoolAPI) createClassroom(ctx echo.Context) error {
	var data school.NewClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.opts.SchoolSvc.CreateClassroom(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, c)
}

func (api *schoolAPI) destroyClassroom(ctx echo.Context) error {
	if err := api.opts.SchoolSvc.DeleteClassroom(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Commissions

func (api *schoolAPI) queryCommissions(ctx echo.Context) error {
	out, err := api.opts.SchoolSvc.QueryCommissions(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying commissions")
	}
	if out == nil {
		out = []school.Commission{}
	}
	return respond(ctx, http.StatusOK, out)
}

func (api *schoolAPI) retrieveCommission(ctx echo.Context) error {
	c, err := api.opts.SchoolSvc.GetCommission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, c)
}

func (api *schoolAPI) createCommission(ctx echo.Context) error {
	var data school.NewCommission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCommission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.opts.SchoolSvc.CreateCommission(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, c)
}

func (api *schoolAPI) destroyCommission(ctx echo.Context) error {
	if err := api.opts.SchoolSvc.DeleteCommission(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
