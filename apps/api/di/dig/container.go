package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/projhub/portal/apps/api/echo"
	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/allocation"
	"github.com/projhub/portal/core/attendance"
	"github.com/projhub/portal/core/batch"
	"github.com/projhub/portal/core/documents"
	"github.com/projhub/portal/core/faculty"
	"github.com/projhub/portal/core/review"
	"github.com/projhub/portal/core/scoring"
	"github.com/projhub/portal/core/title"
	logsvc "github.com/projhub/portal/services/logger"
	"github.com/projhub/portal/services/spreadsheet"
	"github.com/projhub/portal/storage/database"
	"github.com/projhub/portal/storage/filestore"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type FileStoresParam struct {
	dig.In
	Documents core.FileStore `name:"documents"`
	Uploads   core.FileStore `name:"uploads"`
}

type ServerParam struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	BatchSvc      batch.ServiceInterface
	FacultySvc    faculty.ServiceInterface
	ReviewSvc     review.ServiceInterface
	AttendanceSvc attendance.ServiceInterface
	TitleSvc      title.ServiceInterface
	AllocationSvc allocation.ServiceInterface
	DocumentsSvc  documents.ServiceInterface
}

// RepositoriesResult exposes each store of the configured database engine.
type RepositoriesResult struct {
	dig.Out
	Batch      batch.Repository
	Faculty    faculty.Repository
	Review     review.Repository
	Attendance attendance.Repository
	Title      title.Repository
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) database.Repositories {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
	defer cancel()

	repos, err := database.Open(ctx, conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return repos
}

func newRepositories(repos database.Repositories) RepositoriesResult {
	return RepositoriesResult{
		Batch:      repos.Batch,
		Faculty:    repos.Faculty,
		Review:     repos.Review,
		Attendance: repos.Attendance,
		Title:      repos.Title,
	}
}

func newDocumentStore(conf *core.Config, loggerParam DBLoggerParam) core.FileStore {
	return mustFileStore(conf.Storage.DocumentsDir, loggerParam.Logger)
}

func newUploadStore(conf *core.Config, loggerParam DBLoggerParam) core.FileStore {
	return mustFileStore(conf.Storage.UploadsDir, loggerParam.Logger)
}

func mustFileStore(dir string, logger core.Logger) core.FileStore {
	fs, err := filestore.NewLocal(dir)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file store: %v", err), err)
	}
	return fs
}

func newSpreadsheet() core.Spreadsheet {
	return spreadsheet.NewExcel()
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newBatchService(repo batch.Repository, titles title.ServiceInterface, validate *validator.Validate, conf *core.Config) batch.ServiceInterface {
	return batch.NewService(repo, titles, validate, conf.Signup)
}

func newReviewService(
	repo review.Repository,
	roster batch.ServiceInterface,
	sheets core.Spreadsheet,
	validate *validator.Validate,
	conf *core.Config,
) review.ServiceInterface {
	tiers := scoring.Tiers{
		Merit:       conf.Scoring.MeritThreshold,
		Excellent:   conf.Scoring.ExcellentThreshold,
		Outstanding: conf.Scoring.OutstandingThreshold,
	}
	return review.NewService(repo, roster, sheets, validate, tiers, conf.Allocation)
}

func newAllocationService(p FileStoresParam, sheets core.Spreadsheet, conf *core.Config) allocation.ServiceInterface {
	return allocation.NewService(p.Documents, sheets, conf.Allocation)
}

func newDocumentsService(p FileStoresParam, sheets core.Spreadsheet) documents.ServiceInterface {
	return documents.NewService(p.Documents, p.Uploads, sheets)
}

func newServer(p ServerParam) *echoapi.Server {
	return echoapi.NewServer(p.Conf.Server.Address, nil, &echoapi.Deps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		BatchSvc:      p.BatchSvc,
		FacultySvc:    p.FacultySvc,
		ReviewSvc:     p.ReviewSvc,
		AttendanceSvc: p.AttendanceSvc,
		TitleSvc:      p.TitleSvc,
		AllocationSvc: p.AllocationSvc,
		DocumentsSvc:  p.DocumentsSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newDocumentStore, dig.Name("documents")))
	must(c.Provide(newUploadStore, dig.Name("uploads")))
	must(c.Provide(newSpreadsheet))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(title.NewService, dig.As(new(title.ServiceInterface))))
	must(c.Provide(faculty.NewService, dig.As(new(faculty.ServiceInterface))))
	must(c.Provide(attendance.NewService, dig.As(new(attendance.ServiceInterface))))
	must(c.Provide(newBatchService))
	must(c.Provide(newReviewService))
	must(c.Provide(newAllocationService))
	must(c.Provide(newDocumentsService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
