package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core/batch"
	"github.com/projhub/portal/core/title"
)

type titleApi struct {
	svc      title.ServiceInterface
	batches  batch.ServiceInterface
	validate *validator.Validate
}

func registerTitleAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := titleApi{svc: deps.TitleSvc, batches: deps.BatchSvc, validate: deps.Validate}

	tg := g.Group("/update", jwt, roleMiddleware())
	tg.POST("/createBatch", api.create)
	tg.GET("/getTitle/:batchNumber", api.retrieve)
	tg.PUT("/getTitle/:batchNumber", api.set)
}

func (api *titleApi) create(ctx echo.Context) error {
	var data title.NewTitle
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to title.NewTitle")
	}
	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating title")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Batch created successfully.", "batch": t})
}

func (api *titleApi) retrieve(ctx echo.Context) error {
	name, err := api.batches.ProjectTitle(ctx.Request().Context(), ctx.Param("batchNumber"))
	if err != nil {
		return errors.Wrap(err, "getting title")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"title": name})
}

func (api *titleApi) set(ctx echo.Context) error {
	var data TitleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TitleRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	created, err := api.batches.SetProjectTitle(ctx.Request().Context(), ctx.Param("batchNumber"), data.Name)
	if err != nil {
		return errors.Wrap(err, "setting title")
	}
	if created {
		return ctx.JSON(http.StatusCreated, MessageResponse{Message: "Batch title created successfully."})
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Batch title updated successfully."})
}
