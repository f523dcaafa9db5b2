package enrollment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound             = core.NotFound("Enrollment not found")
	ErrInvalidStatus        = core.Invalid("Invalid status")
	ErrAlreadyRequested     = core.Conflict("Already requested")
	ErrPrerequisiteRequired = core.Forbidden("Prerequisite course must be completed first")

	prerequisiteWarning = "Prerequisite exists for this course. Enrollment is allowed but completion is recommended."
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		GetEnrollment(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Enrollment, error)
		// QueryStudents lists the enrollments of a course (optionally with the given status) joined with
		// their users and course grades, oldest first.
		QueryStudents(ctx context.Context, courseID, status string, exec ...core.DBExecutor) ([]Student, error)
		// CountEnrolledStudents counts the distinct users ENROLLED in at least one course.
		CountEnrolledStudents(ctx context.Context, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		State(ctx context.Context, userID, courseID string) (State, error)
		// Request asks for an enrollment at `now`; created reports whether a new enrollment was stored.
		Request(ctx context.Context, userID, courseID string, now time.Time) (state State, created bool, err error)
		ListStudents(ctx context.Context, courseID, status string) ([]Student, error)
		Approve(ctx context.Context, id string) (Enrollment, error)
		Reject(ctx context.Context, id string) (Enrollment, error)
		IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
		CountEnrolledStudents(ctx context.Context) (int, error)
	}

	service struct {
		repo      Repository
		courseSvc course.Service
		userSvc   user.Service
		mailSvc   core.EmailService
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	courseSvc course.Service,
	userSvc user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
) Service {
	return &service{
		repo:      repo,
		courseSvc: courseSvc,
		userSvc:   userSvc,
		mailSvc:   mailSvc,
		logger:    logger,
	}
}

func (svc *service) get(ctx context.Context, userID, courseID string) (Enrollment, bool, error) {
	e, err := svc.repo.GetEnrollment(ctx, GetFilter{UserID: userID, CourseID: courseID})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Enrollment{}, false, nil
		}
		return Enrollment{}, false, errors.Wrap(err, "getting enrollment")
	}
	return e, true, nil
}

func (svc *service) State(ctx context.Context, userID, courseID string) (State, error) {
	e, found, err := svc.get(ctx, userID, courseID)
	if err != nil || !found {
		return State{Status: StatusNotEnrolled}, err
	}
	return State{ID: &e.ID, Status: e.Status}, nil
}

func (svc *service) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	e, found, err := svc.get(ctx, userID, courseID)
	return found && e.Status == StatusEnrolled, err
}

func (svc *service) Request(ctx context.Context, userID, courseID string, now time.Time) (State, bool, error) {
	c, err := svc.courseSvc.Get(ctx, courseID)
	if err != nil {
		return State{}, false, err
	}
	if reason := c.IsAvailable(now); reason != "" {
		return State{}, false, core.Forbidden(reason)
	}
	if c.PrerequisiteID != nil {
		ok, err := svc.IsEnrolled(ctx, userID, *c.PrerequisiteID)
		if err != nil {
			return State{}, false, err
		}
		if !ok {
			return State{}, false, ErrPrerequisiteRequired
		}
	}

	existing, found, err := svc.get(ctx, userID, courseID)
	if err != nil {
		return State{}, false, err
	}
	if found {
		if existing.Status != StatusRejected {
			return State{}, false, ErrAlreadyRequested
		}
		existing.Status = StatusPending
		existing.UpdatedAt = now.UTC()
		if existing, err = svc.repo.UpdateEnrollment(ctx, existing); err != nil {
			return State{}, false, errors.Wrap(err, "updating enrollment")
		}
		return State{ID: &existing.ID, Status: existing.Status}, false, nil
	}

	e, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		Status:    StatusPending,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	})
	if err != nil {
		return State{}, false, errors.Wrap(err, "creating enrollment")
	}
	state := State{ID: &e.ID, Status: e.Status}
	if c.PrerequisiteID != nil {
		state.Warning = &prerequisiteWarning
	}
	return state, true, nil
}

func (svc *service) ListStudents(ctx context.Context, courseID, status string) ([]Student, error) {
	if status != "" && !IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	students, err := svc.repo.QueryStudents(ctx, courseID, status)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

func (svc *service) Approve(ctx context.Context, id string) (Enrollment, error) {
	return svc.decide(ctx, id, StatusEnrolled)
}

func (svc *service) Reject(ctx context.Context, id string) (Enrollment, error) {
	return svc.decide(ctx, id, StatusRejected)
}

func (svc *service) decide(ctx context.Context, id, status string) (Enrollment, error) {
	e, err := svc.repo.GetEnrollment(ctx, GetFilter{ID: id})
	if err != nil {
		return Enrollment{}, err
	}
	e.Status = status
	e.UpdatedAt = time.Now().UTC()
	if e, err = svc.repo.UpdateEnrollment(ctx, e); err != nil {
		return Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	svc.notify(ctx, e)
	return e, nil
}

// notify mails the enrollment decision to the student; failures are only logged.
func (svc *service) notify(ctx context.Context, e Enrollment) {
	usr, err := svc.userSvc.GetByID(ctx, e.UserID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("enrollment %s: user not found", e.ID), err)
		return
	}
	c, err := svc.courseSvc.Get(ctx, e.CourseID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("enrollment %s: course not found", e.ID), err)
		return
	}

	subject := "Enrollment rejected"
	if e.Status == StatusEnrolled {
		subject = "Enrollment approved"
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name(), Address: usr.Email}},
		Subject:      subject,
		TemplateName: "enrollment_decision",
		TemplateData: struct {
			Name        string
			CourseID    string
			CourseTitle string
			Approved    bool
		}{usr.FirstName, c.ID, c.Title, e.Status == StatusEnrolled},
	})
}

func (svc *service) CountEnrolledStudents(ctx context.Context) (int, error) {
	n, err := svc.repo.CountEnrolledStudents(ctx)
	return n, errors.Wrap(err, "counting enrolled students")
}
