package echoapi

import (
	"io"
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/allocation"
	"github.com/projhub/portal/core/batch"
	"github.com/projhub/portal/core/documents"
)

type allocationApi struct {
	svc      allocation.ServiceInterface
	docs     documents.ServiceInterface
	batches  batch.ServiceInterface
	validate *validator.Validate
}

func registerAllocationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := allocationApi{
		svc:      deps.AllocationSvc,
		docs:     deps.DocumentsSvc,
		batches:  deps.BatchSvc,
		validate: deps.Validate,
	}
	manager := roleMiddleware(core.ManagerRoles...)

	ag := g.Group("/alloc", jwt, roleMiddleware())
	ag.GET("/getBatches", api.getBatches)
	ag.GET("/getStudentInfo", api.records(documents.StudentInfo))
	ag.GET("/downloadStudentInfo", api.downloadStudentInfo)
	ag.POST("/addStudent", api.addStudent, manager)
	ag.POST("/uploadStudentInfo", api.upload(documents.StudentInfo), manager)
	api.registerFiles(ag, manager)

	fg := g.Group("/final", jwt, roleMiddleware())
	fg.GET("/getGuideInfo", api.records(documents.GuideInfo))
	fg.GET("/faculty/batch/:batchNumber", api.guideForBatch)
	fg.POST("/uploadGuideInfo", api.upload(documents.GuideInfo), manager)
	api.registerFiles(fg, manager)

	dg := g.Group("/domain-faculty", jwt, roleMiddleware())
	dg.GET("/domains", api.domains)
	dg.GET("/faculty/:domain", api.guidesForDomain)
	dg.POST("/upload", api.upload(documents.FacultyData), manager)
	api.registerFiles(dg, manager)

	sg := g.Group("/section", jwt, roleMiddleware())
	sg.GET("/getSections", api.sections)
	sg.GET("/getAllBatches", api.sectionBatches)
	sg.GET("/getAllBatches/:section", api.sectionBatches)
	sg.GET("/assignments", api.assignments)
	sg.POST("/uploadSecAlloc", api.upload(documents.SectionAlloc), manager)
}

// registerFiles mounts the listing, download and removal of the stored workbooks.
func (api *allocationApi) registerFiles(g *echo.Group, manager echo.MiddlewareFunc) {
	g.GET("/files", api.files)
	g.GET("/files/:fileName", api.download)
	g.DELETE("/files/:fileName", api.deleteFile, manager)
}

func (api *allocationApi) upload(slot documents.Slot) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		filename, f, err := formFile(ctx)
		if err != nil {
			return err
		}
		//goland:noinspection GoUnhandledErrorResult
		defer f.Close()

		info, err := api.docs.ReplaceSlot(slot, filename, f)
		if err != nil {
			return errors.Wrapf(err, "replacing %s", slot)
		}
		return ctx.JSON(http.StatusOK, UploadResponse{Message: "File uploaded successfully", FileName: info.Name})
	}
}

func (api *allocationApi) records(slot documents.Slot) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		records, err := api.svc.Records(slot)
		if err != nil {
			return errors.Wrapf(err, "reading %s", slot)
		}
		return ctx.JSON(http.StatusOK, echo.Map{"data": records})
	}
}

func (api *allocationApi) files(ctx echo.Context) error {
	files, err := api.docs.SlotFiles()
	if err != nil {
		return errors.Wrap(err, "listing files")
	}
	return ctx.JSON(http.StatusOK, files)
}

func (api *allocationApi) download(ctx echo.Context) error {
	return sendFile(ctx, ctx.Param("fileName"), api.docs.OpenSlotFile)
}

func (api *allocationApi) deleteFile(ctx echo.Context) error {
	if err := api.docs.DeleteSlotFile(ctx.Param("fileName")); err != nil {
		return errors.Wrap(err, "deleting file")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "File deleted successfully"})
}

func (api *allocationApi) getBatches(ctx echo.Context) error {
	batches, err := api.svc.Batches()
	if err != nil {
		return errors.Wrap(err, "reading batches")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"batches": batches})
}

func (api *allocationApi) downloadStudentInfo(ctx echo.Context) error {
	return sendWorkbook(ctx, "formatted_student_info.xlsx", func(w io.Writer) error {
		return api.svc.FormattedStudentInfo(w)
	})
}

func (api *allocationApi) addStudent(ctx echo.Context) error {
	var data allocation.StudentRow
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to allocation.StudentRow")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if err := api.svc.AddStudentRow(data); err != nil {
		return errors.Wrap(err, "adding student row")
	}
	return ctx.JSON(http.StatusCreated, MessageResponse{Message: "Student added successfully"})
}

func (api *allocationApi) guideForBatch(ctx echo.Context) error {
	ga, err := api.svc.GuideForBatch(ctx.Param("batchNumber"))
	if err != nil {
		return errors.Wrap(err, "finding guide")
	}
	return ctx.JSON(http.StatusOK, ga)
}

func (api *allocationApi) domains(ctx echo.Context) error {
	domains, err := api.svc.Domains()
	if err != nil {
		return errors.Wrap(err, "reading domains")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"domains": domains})
}

func (api *allocationApi) guidesForDomain(ctx echo.Context) error {
	domain := ctx.Param("domain")
	names, err := api.svc.GuidesForDomain(domain)
	if err != nil {
		return errors.Wrap(err, "reading guides")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"domain": domain, "facultyNames": names})
}

func (api *allocationApi) sections(ctx echo.Context) error {
	sections, err := api.svc.Sections()
	if err != nil {
		return errors.Wrap(err, "reading sections")
	}
	return ctx.JSON(http.StatusOK, sections)
}

func (api *allocationApi) sectionBatches(ctx echo.Context) error {
	mapping, err := api.svc.SectionBatches(ctx.Param("section"))
	if err != nil {
		return errors.Wrap(err, "reading section batches")
	}
	out := make(map[string][]string, len(mapping))
	for _, sb := range mapping {
		out[sb.Section] = sb.Batches
	}
	return ctx.JSON(http.StatusOK, out)
}

// assignments places every registered batch in a section.
func (api *allocationApi) assignments(ctx echo.Context) error {
	batches, err := api.batches.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing batches")
	}
	numbers := make([]string, 0, len(batches))
	for _, b := range batches {
		numbers = append(numbers, b.Number)
	}
	sort.Slice(numbers, func(i, j int) bool { return allocation.LessBatch(numbers[i], numbers[j]) })

	assignments, err := api.svc.Assignments(numbers)
	if err != nil {
		return errors.Wrap(err, "assigning batches")
	}
	return ctx.JSON(http.StatusOK, assignments)
}
