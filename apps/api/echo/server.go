package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/allocation"
	"github.com/projhub/portal/core/attendance"
	"github.com/projhub/portal/core/batch"
	"github.com/projhub/portal/core/documents"
	"github.com/projhub/portal/core/faculty"
	"github.com/projhub/portal/core/review"
	"github.com/projhub/portal/core/title"
)

type (
	Deps struct {
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

	Server struct {
		address  string
		app      *echo.Echo
		deps     *Deps
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(address string, shutdown chan os.Signal, deps *Deps) *Server {
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
	}
	s := &Server{
		address:  address,
		app:      echo.New(),
		deps:     deps,
		errors:   make(chan error, 1),
		shutdown: shutdown,
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     conf.Server.CORSOrigins,
		AllowCredentials: true,
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf.SecretKey))

	registerBatchAPI(api, jwt, s.deps)
	registerStudentAPI(api, jwt, s.deps)
	registerFacultyAPI(api, jwt, s.deps)
	registerReviewAPI(api, jwt, s.deps)
	registerAttendanceAPI(api, jwt, s.deps)
	registerTitleAPI(api, jwt, s.deps)
	registerAllocationAPI(api, jwt, s.deps)
	registerUploadAPI(api, jwt, s.deps)
}

// Start listens until the server is shut down. Listener errors are sent to Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, s.deps.Conf.AppName+" is running!")
}
