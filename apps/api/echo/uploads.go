package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/documents"
)

type uploadApi struct {
	svc documents.ServiceInterface
}

func registerUploadAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := uploadApi{svc: deps.DocumentsSvc}

	ug := g.Group("/uploads", jwt, roleMiddleware())
	ug.POST("", api.upload, roleMiddleware(core.ManagerRoles...))
	ug.GET("/files", api.query)
	ug.GET("/files/:name", api.download)
	ug.DELETE("/files/:name", api.destroy, roleMiddleware(core.ManagerRoles...))
	ug.GET("/getfiles", api.latest)
}

func (api *uploadApi) upload(ctx echo.Context) error {
	filename, f, err := formFile(ctx)
	if err != nil {
		return err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	info, err := api.svc.Upload(filename, f)
	if err != nil {
		return errors.Wrap(err, "uploading file")
	}
	return ctx.JSON(http.StatusCreated, UploadResponse{Message: "File uploaded successfully", FileName: info.Name})
}

func (api *uploadApi) query(ctx echo.Context) error {
	files, err := api.svc.Uploads()
	if err != nil {
		return errors.Wrap(err, "listing uploads")
	}
	return ctx.JSON(http.StatusOK, files)
}

func (api *uploadApi) download(ctx echo.Context) error {
	return sendFile(ctx, ctx.Param("name"), api.svc.OpenUpload)
}

func (api *uploadApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteUpload(ctx.Param("name")); err != nil {
		return errors.Wrap(err, "deleting upload")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "File deleted successfully"})
}

func (api *uploadApi) latest(ctx echo.Context) error {
	rows, err := api.svc.LatestUpload()
	if err != nil {
		return errors.Wrap(err, "reading latest upload")
	}
	return ctx.JSON(http.StatusOK, rows)
}
