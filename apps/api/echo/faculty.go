package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/faculty"
)

type facultyApi struct {
	svc      faculty.ServiceInterface
	validate *validator.Validate
	conf     *core.Config
}

func registerFacultyAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := facultyApi{svc: deps.FacultySvc, validate: deps.Validate, conf: deps.Conf}

	fg := g.Group("/faculties")

	// un-authed endpoints
	fg.POST("/login", api.login)

	// authed endpoints
	ag := fg.Group("", jwt, roleMiddleware())
	ag.POST("", api.create, roleMiddleware(core.ManagerRoles...))
	ag.GET("", api.query)
	ag.GET("/role/:facultyId", api.role)
	ag.POST("/reset-password", api.resetPassword, roleMiddleware(core.ManagerRoles...))
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update, roleMiddleware(core.ManagerRoles...))
	ag.DELETE("/:id", api.destroy, roleMiddleware(core.ManagerRoles...))
}

func (api *facultyApi) create(ctx echo.Context) error {
	var data faculty.NewFaculty
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to faculty.NewFaculty")
	}
	f, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating faculty")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *facultyApi) login(ctx echo.Context) error {
	var data FacultyLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FacultyLoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Authenticate(ctx.Request().Context(), data.FacultyID, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating faculty")
	}
	token, err := issueToken(core.Principal{ID: f.ID, Role: f.Role}, api.conf)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Login successful", "role": f.Role, "token": token})
}

func (api *facultyApi) role(ctx echo.Context) error {
	role, err := api.svc.Role(ctx.Request().Context(), ctx.Param("facultyId"))
	if err != nil {
		return errors.Wrap(err, "getting faculty role")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"role": role})
}

func (api *facultyApi) query(ctx echo.Context) error {
	faculties, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying faculties")
	}
	return ctx.JSON(http.StatusOK, faculties)
}

func (api *facultyApi) retrieve(ctx echo.Context) error {
	f, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting faculty")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *facultyApi) update(ctx echo.Context) error {
	var data faculty.UpdateFaculty
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to faculty.UpdateFaculty")
	}
	f, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating faculty")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *facultyApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting faculty")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Faculty deleted successfully"})
}

func (api *facultyApi) resetPassword(ctx echo.Context) error {
	var data faculty.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to faculty.ResetPassword")
	}
	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}
