package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/exam"
	"github.com/trezcool/darasa/core/file"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/omr"
	"github.com/trezcool/darasa/core/question"
	"github.com/trezcool/darasa/core/user"
)

// ServerDeps holds the services exposed by the API.
type ServerDeps struct {
	Validate      *validator.Validate
	Translator    ut.Translator
	UserSvc       user.Service
	CourseSvc     course.Service
	EnrollmentSvc enrollment.Service
	GradingSvc    grading.Service
	QuestionSvc   question.Service
	ExamSvc       exam.Service
	FileSvc       file.Service
	OMRSvc        omr.Service
}

type Server struct {
	conf     *core.Config
	logger   core.Logger
	deps     *ServerDeps
	auth     *Auth
	app      *echo.Echo
	registry *prometheus.Registry
	errors   chan error
	shutdown chan os.Signal
}

var _ http.Handler = (*Server)(nil)

func NewServer(conf *core.Config, logger core.Logger, deps *ServerDeps) *Server {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	s := &Server{
		conf:     conf,
		logger:   logger,
		deps:     deps,
		auth:     NewAuth(conf),
		app:      echo.New(),
		registry: prometheus.NewRegistry(),
		errors:   make(chan error, 1),
		shutdown: shutdown,
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug && !s.conf.TestMode
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.deps.Translator, s.signalShutdown)

	s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := newHTTPMetrics(s.registry)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(
		middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: s.conf.Server.AllowOrigins}),
		middleware.Secure(),
		metrics.middleware(),
	)

	s.app.GET("/health", health)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig())
	authLimit := rateLimitMiddleware(s.conf.Server.AuthRateLimit, s.conf.Server.AuthRateBurst)

	d := s.deps
	registerUserAPI(g, jwt, authLimit, s.auth, d.UserSvc, d.Validate, s.logger)
	registerCourseAPI(g, jwt, d.CourseSvc, d.EnrollmentSvc, d.FileSvc, d.Validate)
	registerEnrollmentAPI(g, jwt, d.EnrollmentSvc)
	registerGradingAPI(g, jwt, d.GradingSvc, d.Validate)
	registerQuestionAPI(g, jwt, d.QuestionSvc, d.Validate)
	registerExamAPI(g, jwt, d.ExamSvc, d.Validate)
	registerFileAPI(g, jwt, d.FileSvc)
	registerOMRAPI(g, jwt, d.OMRSvc, d.Validate)
	registerSEBAPI(g, jwt)
}

// Start listens on Server.Address; serving errors are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
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
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

// GenerateToken returns a signed JWT for usr.
func (s *Server) GenerateToken(usr user.User) (string, error) {
	return s.auth.GenerateToken(s.auth.GetUserClaims(usr))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true, "service": "lms-api"})
}
