package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/batch"
)

type batchApi struct {
	svc      batch.ServiceInterface
	validate *validator.Validate
	conf     *core.Config
}

func registerBatchAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := batchApi{svc: deps.BatchSvc, validate: deps.Validate, conf: deps.Conf}

	bg := g.Group("/batches")

	// un-authed endpoints
	bg.POST("/signup", api.signup)

	// authed endpoints
	ag := bg.Group("", jwt, roleMiddleware())
	ag.GET("", api.query)
	ag.GET("/:number", api.retrieve)
	ag.PUT("/:number", api.update, roleMiddleware(core.ManagerRoles...))
	ag.DELETE("/:number", api.destroy, roleMiddleware(core.ManagerRoles...))
	ag.GET("/:number/students", api.students)
	ag.GET("/:number/project-title", api.projectTitle)
	ag.PATCH("/:number/project-title", api.setProjectTitle)
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := batchApi{svc: deps.BatchSvc, validate: deps.Validate, conf: deps.Conf}

	sg := g.Group("/students")

	// un-authed endpoints
	sg.POST("/check-students", api.checkStudents)
	sg.POST("/login", api.login)

	// authed endpoints
	ag := sg.Group("", jwt, roleMiddleware())
	ag.GET("", api.queryStudents)
	ag.GET("/details/:regNo", api.studentDetails)
	ag.GET("/:regNo", api.retrieveStudent)
	ag.PUT("/:regNo", api.updateStudent, roleMiddleware(core.ManagerRoles...))
	ag.DELETE("/:regNo", api.destroyStudent, roleMiddleware(core.ManagerRoles...))
}

// Batch handlers

func (api *batchApi) signup(ctx echo.Context) error {
	var data batch.Signup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to batch.Signup")
	}
	b, students, err := api.svc.Signup(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "signing up batch")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"batch": b, "students": students})
}

func (api *batchApi) query(ctx echo.Context) error {
	batches, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying batches")
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *batchApi) retrieve(ctx echo.Context) error {
	b, err := api.svc.Get(ctx.Request().Context(), ctx.Param("number"))
	if err != nil {
		return errors.Wrap(err, "getting batch")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *batchApi) update(ctx echo.Context) error {
	var data batch.UpdateBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to batch.UpdateBatch")
	}
	b, err := api.svc.Update(ctx.Request().Context(), ctx.Param("number"), data)
	if err != nil {
		return errors.Wrap(err, "updating batch")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *batchApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("number")); err != nil {
		return errors.Wrap(err, "deleting batch")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Batch deleted successfully"})
}

func (api *batchApi) students(ctx echo.Context) error {
	students, err := api.svc.Students(ctx.Request().Context(), ctx.Param("number"))
	if err != nil {
		return errors.Wrap(err, "querying batch students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *batchApi) projectTitle(ctx echo.Context) error {
	name, err := api.svc.ProjectTitle(ctx.Request().Context(), ctx.Param("number"))
	if err != nil {
		return errors.Wrap(err, "getting project title")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"projectTitle": name})
}

func (api *batchApi) setProjectTitle(ctx echo.Context) error {
	var data batch.ProjectTitleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to batch.ProjectTitleRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if _, err := api.svc.SetProjectTitle(ctx.Request().Context(), ctx.Param("number"), data.ProjectTitle); err != nil {
		return errors.Wrap(err, "setting project title")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"message":      "Project title updated successfully",
		"projectTitle": data.ProjectTitle,
	})
}

// Student handlers

func (api *batchApi) checkStudents(ctx echo.Context) error {
	var data batch.CheckRegNos
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to batch.CheckRegNos")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	err := api.svc.CheckRegistrationNumbers(ctx.Request().Context(), data.RegNos)
	if conflict, ok := errors.Cause(err).(*core.ConflictError); ok {
		return ctx.JSON(http.StatusConflict, echo.Map{"error": conflict.Error(), "existingRegNos": conflict.Values})
	}
	if err != nil {
		return errors.Wrap(err, "checking registration numbers")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "All registration numbers are unique"})
}

func (api *batchApi) login(ctx echo.Context) error {
	var data StudentLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentLoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Authenticate(ctx.Request().Context(), data.RegNo, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating student")
	}
	token, err := issueToken(core.Principal{ID: s.RegNo, Role: core.RoleStudent}, api.conf)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": "Login successful",
		"token":   token,
		"student": echo.Map{
			"registrationNumber": s.RegNo,
			"batchNumber":        s.BatchNumber,
			"batchTitle":         s.BatchTitle,
		},
	})
}

func (api *batchApi) queryStudents(ctx echo.Context) error {
	students, err := api.svc.Students(ctx.Request().Context(), ctx.QueryParam("batchNumber"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *batchApi) studentDetails(ctx echo.Context) error {
	d, err := api.svc.StudentDetails(ctx.Request().Context(), ctx.Param("regNo"))
	if err != nil {
		return errors.Wrap(err, "getting student details")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *batchApi) retrieveStudent(ctx echo.Context) error {
	s, err := api.svc.Student(ctx.Request().Context(), ctx.Param("regNo"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *batchApi) updateStudent(ctx echo.Context) error {
	var data batch.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to batch.UpdateStudent")
	}
	s, err := api.svc.UpdateStudent(ctx.Request().Context(), ctx.Param("regNo"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *batchApi) destroyStudent(ctx echo.Context) error {
	if err := api.svc.DeleteStudent(ctx.Request().Context(), ctx.Param("regNo")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Student deleted successfully"})
}
