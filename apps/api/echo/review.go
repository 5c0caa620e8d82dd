package echoapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/review"
)

type reviewApi struct {
	svc review.ServiceInterface
}

func registerReviewAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := reviewApi{svc: deps.ReviewSvc}

	rg := g.Group("/review", jwt, roleMiddleware())
	rg.POST("/reviews", api.save, roleMiddleware(core.ScoringRoles...))
	rg.GET("/reviews/:batchNumber", api.retrieve)
	rg.GET("/scores/:batchNumber/:regNo", api.scorecard)
	rg.GET("/scores/:batchNumber/:regNo/:round", api.reviewTotal)
	rg.GET("/summative/:batchNumber/:regNo", api.summative)
	rg.GET("/report", api.report)
	rg.GET("/report/download/excel", api.downloadReport)
}

func (api *reviewApi) save(ctx echo.Context) error {
	var data review.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to review.Submission")
	}
	if _, err := api.svc.Save(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "saving reviews")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Reviews saved successfully!"})
}

func (api *reviewApi) retrieve(ctx echo.Context) error {
	r, err := api.svc.Get(ctx.Request().Context(), ctx.Param("batchNumber"))
	if err != nil {
		return errors.Wrap(err, "getting reviews")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"reviews": r.Raw()})
}

func (api *reviewApi) scorecard(ctx echo.Context) error {
	sc, err := api.svc.Scorecard(ctx.Request().Context(), ctx.Param("batchNumber"), ctx.Param("regNo"))
	if err != nil {
		return errors.Wrap(err, "getting scorecard")
	}
	return ctx.JSON(http.StatusOK, sc)
}

func (api *reviewApi) reviewTotal(ctx echo.Context) error {
	round, err := strconv.Atoi(ctx.Param("round"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "round", Error: "must be a number"})
	}
	total, err := api.svc.ReviewTotal(ctx.Request().Context(), ctx.Param("batchNumber"), ctx.Param("regNo"), round)
	if err != nil {
		return errors.Wrap(err, "getting review total")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"round": round, "reviewTotal": total})
}

func (api *reviewApi) summative(ctx echo.Context) error {
	c := ctx.Request().Context()
	batchNumber, regNo := ctx.Param("batchNumber"), ctx.Param("regNo")
	total, err := api.svc.TotalScore(c, batchNumber, regNo)
	if err != nil {
		return errors.Wrap(err, "getting total score")
	}
	avg, err := api.svc.SummativeReview(c, batchNumber, regNo)
	if err != nil {
		return errors.Wrap(err, "getting summative review")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"totalScore": total, "averageItemScore": avg})
}

func (api *reviewApi) report(ctx echo.Context) error {
	rows, err := api.svc.Report(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building review report")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *reviewApi) downloadReport(ctx echo.Context) error {
	return sendWorkbook(ctx, "review_report.xlsx", func(w io.Writer) error {
		return api.svc.ExportReport(ctx.Request().Context(), w)
	})
}
