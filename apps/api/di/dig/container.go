package dig_container

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/exam"
	"github.com/trezcool/darasa/core/file"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/omr"
	"github.com/trezcool/darasa/core/question"
	"github.com/trezcool/darasa/core/user"
	appfs "github.com/trezcool/darasa/fs"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	omrsvc "github.com/trezcool/darasa/services/omr"
	storagesvc "github.com/trezcool/darasa/services/storage"
	"github.com/trezcool/darasa/storage/database"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Repositories are the storage backends of the services, all from the same database.
type Repositories struct {
	dig.Out

	Tx          core.Transactor
	Closer      io.Closer `name:"dbCloser"`
	Users       user.Repository
	Courses     course.Repository
	Bank        course.QuestionBank
	Enrollments enrollment.Repository
	Grades      grading.Repository
	Questions   question.Repository
	Exams       exam.Repository
	OMR         omr.Repository
}

type DBCloserParam struct {
	dig.In
	Closer io.Closer `name:"dbCloser"`
}

type ServerParams struct {
	dig.In

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

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(os.Stdout, "api", conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(os.Stdout, "db", conf)
	logger.Enable(!conf.Debug)
	return logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.Backend == "inmem" {
		loggerParam.Logger.Warn("using the in-memory database: data is lost on exit")
		db := inmemdb.Open()
		questions := inmemdb.NewQuestionRepository(db)
		return Repositories{
			Tx:          db,
			Closer:      nopCloser{},
			Users:       inmemdb.NewUserRepository(db),
			Courses:     inmemdb.NewCourseRepository(db),
			Bank:        questions,
			Enrollments: inmemdb.NewEnrollmentRepository(db),
			Grades:      inmemdb.NewGradingRepository(db),
			Questions:   questions,
			Exams:       inmemdb.NewExamRepository(db),
			OMR:         inmemdb.NewOMRRepository(db),
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Migrate(db.DB); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	questions := sqlxrepos.NewQuestionRepository(db)
	return Repositories{
		Tx:          database.NewTransactor(db),
		Closer:      db,
		Users:       sqlxrepos.NewUserRepository(db),
		Courses:     sqlxrepos.NewCourseRepository(db),
		Bank:        questions,
		Enrollments: sqlxrepos.NewEnrollmentRepository(db),
		Grades:      sqlxrepos.NewGradingRepository(db),
		Questions:   questions,
		Exams:       sqlxrepos.NewExamRepository(db),
		OMR:         sqlxrepos.NewOMRRepository(db),
	}
}

func newObjectStore(conf *core.Config, logger core.Logger) core.ObjectStore {
	if conf.Storage.Backend == "inmem" {
		logger.Warn("using the in-memory object store: files are lost on exit")
		return storagesvc.NewMemoryStore(conf.Storage.Bucket)
	}

	store, err := storagesvc.NewMinioStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up object store: %v", err), err)
	}
	if err = store.EnsureBucket(context.Background()); err != nil {
		// the breaker takes over once the store is reachable
		logger.Error(fmt.Sprintf("ensuring bucket %q: %v", conf.Storage.Bucket, err), err)
	}
	return storagesvc.NewBreakerStore(store, storagesvc.BreakerSettings{}, logger)
}

func newScanner(conf *core.Config, logger core.Logger) omr.Scanner {
	var layout omr.Layout
	var err error
	if conf.OMR.LayoutPath != "" {
		var data []byte
		if data, err = os.ReadFile(conf.OMR.LayoutPath); err == nil {
			layout, err = omr.ParseLayout(data)
		}
	} else {
		layout, err = omr.LoadLayout(appfs.FS, appfs.OMRLayout)
	}
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading OMR layout: %v", err), err)
	}

	if conf.OMR.Scanner == "script" {
		scn, err := omrsvc.NewScriptScanner(conf.OMR.ScriptCommand, conf.OMR.LayoutPath, layout)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up OMR script: %v", err), err)
		}
		return scn
	}
	return omrsvc.NewNativeScanner(layout, conf.OMR.DebugDir)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	return validate
}

func newServerDeps(p ServerParams) *echoapi.ServerDeps {
	return &echoapi.ServerDeps{
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.UserSvc,
		CourseSvc:     p.CourseSvc,
		EnrollmentSvc: p.EnrollmentSvc,
		GradingSvc:    p.GradingSvc,
		QuestionSvc:   p.QuestionSvc,
		ExamSvc:       p.ExamSvc,
		FileSvc:       p.FileSvc,
		OMRSvc:        p.OMRSvc,
	}
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newObjectStore))
	must(c.Provide(newScanner))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))

	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(grading.NewService))
	must(c.Provide(question.NewService))
	must(c.Provide(exam.NewService))
	must(c.Provide(file.NewService))
	must(c.Provide(omr.NewService))

	must(c.Provide(newServerDeps))
	must(c.Provide(echoapi.NewServer))
	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
