package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/attendance"
	"github.com/projhub/portal/core/batch"
)

type attendanceApi struct {
	svc attendance.ServiceInterface
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := attendanceApi{svc: deps.AttendanceSvc}

	ag := g.Group("/attendance", jwt, roleMiddleware())
	ag.POST("/mark", api.mark, roleMiddleware(core.AttendanceRoles...))
	ag.GET("/get/:date", api.retrieve)
	ag.GET("/all-students-and-dates", api.roster)
	ag.GET("/student/first/:regdNo", api.firstPresence)
	ag.GET("/submissions", api.submissions)
	ag.GET("/submissions/download/excel", api.downloadSubmissions)
	ag.DELETE("/delete-all", api.destroyAll, roleMiddleware(core.AttendanceRoles...))
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.Mark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to attendance.Mark")
	}
	if _, err := api.svc.Mark(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Attendance saved successfully!"})
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.Get(ctx.Request().Context(), ctx.Param("date"))
	if err != nil {
		return errors.Wrap(err, "getting attendance")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"attendance": a.Attendance})
}

func (api *attendanceApi) roster(ctx echo.Context) error {
	r, err := api.svc.Roster(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing students and dates")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *attendanceApi) firstPresence(ctx echo.Context) error {
	regNo := batch.NormalizeRegNo(ctx.Param("regdNo"))
	date, err := api.svc.FirstPresence(ctx.Request().Context(), regNo)
	if err != nil {
		return errors.Wrap(err, "finding first attendance")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"student": regNo, "firstAttendance": date})
}

func (api *attendanceApi) submissions(ctx echo.Context) error {
	subs, err := api.svc.Submissions(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *attendanceApi) downloadSubmissions(ctx echo.Context) error {
	return sendWorkbook(ctx, "submissions.xlsx", func(w io.Writer) error {
		return api.svc.ExportSubmissions(ctx.Request().Context(), w)
	})
}

func (api *attendanceApi) destroyAll(ctx echo.Context) error {
	n, err := api.svc.DeleteAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "All attendance records have been deleted.",
		"deleted": n,
	})
}
