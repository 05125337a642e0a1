package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shuleos/shule/core/role"
)

type roleAPI struct {
	opts       *Options
	validate   *validator.Validate
	translator ut.Translator
}

func registerRoleAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	opts *Options,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := roleAPI{
		opts:       opts,
		validate:   validate,
		translator: translator,
	}

	rg := g.Group("/roles", jwt, privilegeMiddleware(role.PrivManageRoles))
	rg.GET("", api.query)
	rg.POST("", api.create)
	rg.GET("/privileges", api.queryPrivileges)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update)
	rg.DELETE("/:id", api.destroy)
	rg.POST("/assign", api.assign)
}

// Handlers

func (api *roleAPI) query(ctx echo.Context) error {
	roles, err := api.opts.RoleSvc.QueryRoles(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying roles")
	}
	if roles == nil {
		roles = []role.Role{}
	}
	return respond(ctx, http.StatusOK, roles)
}

func (api *roleAPI) queryPrivileges(ctx echo.Context) error {
	privileges, err := api.opts.RoleSvc.QueryPrivileges(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying privileges")
	}
	if privileges == nil {
		privileges = []role.Privilege{}
	}
	return respond(ctx, http.StatusOK, privileges)
}

func (api *roleAPI) retrieve(ctx echo.Context) error {
	r, err := api.opts.RoleSvc.GetRole(ctx.Request().Context(), role.GetFilter{ID: ctx.Param("id")})
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, r)
}

func (api *roleAPI) create(ctx echo.Context) error {
	var data role.NewRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRole")
	}
	if err := data.Validate(api.validate, api.translator); err != nil {
		return err
	}

	r, err := api.opts.RoleSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, r, "Role created.")
}

func (api *roleAPI) update(ctx echo.Context) error {
	var data role.UpdateRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRole")
	}
	if err := data.Validate(api.validate, api.translator); err != nil {
		return err
	}

	r, err := api.opts.RoleSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, r)
}

func (api *roleAPI) destroy(ctx echo.Context) error {
	if err := api.opts.RoleSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roleAPI) assign(ctx echo.Context) error {
	var data AssignRoleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignRoleRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	assigned, err := api.opts.RoleSvc.AssignToUser(ctx.Request().Context(), data.UserID, data.RoleName)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, assigned, "Role assigned.")
}

type AssignRoleRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	RoleName string `json:"role_name" validate:"required"`
}

func (ar *AssignRoleRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(ar)
}
