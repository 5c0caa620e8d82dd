package echoapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/batch"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type (
	FacultyLoginRequest struct {
		FacultyID string `json:"facultyId" validate:"notblank"`
		Password  string `json:"password" validate:"required"`
	}

	StudentLoginRequest struct {
		RegNo    string `json:"registrationNumber" validate:"notblank"`
		Password string `json:"password" validate:"required"`
	}

	TitleRequest struct {
		Name string `json:"name" validate:"notblank"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}

	SuccessResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	UploadResponse struct {
		Message  string `json:"message"`
		FileName string `json:"fileName"`
	}
)

func (lr *FacultyLoginRequest) Validate(validate *validator.Validate) error {
	lr.FacultyID = core.CleanString(lr.FacultyID)
	return validate.Struct(lr)
}

func (lr *StudentLoginRequest) Validate(validate *validator.Validate) error {
	lr.RegNo = batch.NormalizeRegNo(lr.RegNo)
	return validate.Struct(lr)
}

func (tr *TitleRequest) Validate(validate *validator.Validate) error {
	tr.Name = core.CleanString(tr.Name)
	return validate.Struct(tr)
}

// formFile opens the multipart "file" field of the request.
func formFile(ctx echo.Context) (string, io.ReadCloser, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return "", nil, errNoFile
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, errors.Wrap(err, "opening uploaded file")
	}
	return fh.Filename, f, nil
}

func attachment(ctx echo.Context, filename string) {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
}

// sendWorkbook buffers a generated workbook so that a failure still yields a JSON error.
func sendWorkbook(ctx echo.Context, filename string, write func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	attachment(ctx, filename)
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// sendFile streams a stored file as a download.
func sendFile(ctx echo.Context, name string, open func(name string) (io.ReadCloser, error)) error {
	rc, err := open(name)
	if err != nil {
		return err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer rc.Close()

	attachment(ctx, name)
	return ctx.Stream(http.StatusOK, xlsxContentType, rc)
}
