package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

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
	omrsvc "github.com/trezcool/darasa/services/omr"
	storagesvc "github.com/trezcool/darasa/services/storage"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

// App is the whole service layer wired on in-memory backends.
type App struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	Store      *storagesvc.MemoryStore
	Validate   *validator.Validate
	Translator ut.Translator

	UserRepo       user.Repository
	CourseRepo     course.Repository
	EnrollmentRepo enrollment.Repository
	GradingRepo    grading.Repository
	QuestionRepo   question.Repository
	ExamRepo       exam.Repository
	OMRRepo        omr.Repository

	UserSvc       user.Service
	CourseSvc     course.Service
	EnrollmentSvc enrollment.Service
	GradingSvc    grading.Service
	QuestionSvc   question.Service
	ExamSvc       exam.Service
	FileSvc       file.Service
	OMRSvc        omr.Service
}

// NewApp builds an App; the OMR service reads sheets with `scanner` when given, else with the native scanner.
func NewApp(t testing.TB, scanner ...omr.Scanner) *App {
	conf := core.NewTestConfig()
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(appfs.FS, appfs.CommonPasswords, core.NopLogger{})
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, core.NopLogger{})

	var scn omr.Scanner
	if len(scanner) > 0 {
		scn = scanner[0]
	} else {
		layout, err := omr.LoadLayout(appfs.FS, appfs.OMRLayout)
		if err != nil {
			t.Fatalf("omr.LoadLayout(): %v", err)
		}
		scn = omrsvc.NewNativeScanner(layout, "")
	}

	db := inmemdb.Open()
	store := storagesvc.NewMemoryStore(conf.Storage.Bucket)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	a := &App{
		Conf:           conf,
		Logger:         core.NopLogger{},
		DB:             db,
		Store:          store,
		Validate:       validate,
		Translator:     translator,
		UserRepo:       inmemdb.NewUserRepository(db),
		CourseRepo:     inmemdb.NewCourseRepository(db),
		EnrollmentRepo: inmemdb.NewEnrollmentRepository(db),
		GradingRepo:    inmemdb.NewGradingRepository(db),
		QuestionRepo:   inmemdb.NewQuestionRepository(db),
		ExamRepo:       inmemdb.NewExamRepository(db),
		OMRRepo:        inmemdb.NewOMRRepository(db),
	}
	a.UserSvc = user.NewService(conf, a.UserRepo, mailSvc, core.NopLogger{})
	a.CourseSvc = course.NewService(a.CourseRepo, a.QuestionRepo, db)
	a.EnrollmentSvc = enrollment.NewService(a.EnrollmentRepo, a.CourseSvc, a.UserSvc, mailSvc, core.NopLogger{})
	a.GradingSvc = grading.NewService(a.GradingRepo, a.UserSvc, a.CourseSvc, a.EnrollmentSvc, db)
	a.QuestionSvc = question.NewService(a.QuestionRepo, a.CourseSvc, a.GradingSvc)
	a.ExamSvc = exam.NewService(a.ExamRepo, a.CourseSvc)
	a.FileSvc = file.NewService(conf, store)
	a.OMRSvc = omr.NewService(a.OMRRepo, scn, store, a.CourseSvc, a.UserSvc, a.EnrollmentSvc, a.GradingSvc, core.NopLogger{})
	return a
}

// Reset empties the database and the sent emails.
func (a *App) Reset() {
	a.DB.Flush()
	emailsvc.ClearSent()
}

func CreateUser(
	t testing.TB,
	repo user.Repository,
	firstName, lastName, email, studentNumber, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if role == "" {
		role = user.RoleStudent
	}
	usr := user.User{
		Email:         email,
		FirstName:     firstName,
		LastName:      lastName,
		StudentNumber: studentNumber,
		Role:          role,
		IsActive:      isActive,
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateCourse(t testing.TB, repo course.Repository, title string, prerequisiteID ...string) course.Course {
	c := course.Course{Title: title, CreatedAt: time.Now().UTC()}
	if len(prerequisiteID) > 0 {
		c.PrerequisiteID = &prerequisiteID[0]
	}
	c, err := repo.CreateCourse(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	return c
}

func CreateEnrollment(t testing.TB, repo enrollment.Repository, userID, courseID, status string) enrollment.Enrollment {
	now := time.Now().UTC()
	e, err := repo.CreateEnrollment(context.Background(), enrollment.Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateEnrollment(): %v", err)
	}
	return e
}
