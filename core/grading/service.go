package grading

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrResultNotFound     = core.NotFound("Exam result not found")
	ErrInvalidStudent     = core.Invalid("Invalid student")
	ErrStudentNotEnrolled = core.Invalid("Student not enrolled")
)

type (
	Repository interface {
		// UpsertGrade inserts g or replaces the score and source of the grade of (g.UserID, g.CourseID).
		UpsertGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		// QueryUserGrades returns the grades of a user with their course titles.
		QueryUserGrades(ctx context.Context, userID string, exec ...core.DBExecutor) ([]MyGrade, error)
		// AverageGrade is nil when there are no grades.
		AverageGrade(ctx context.Context, exec ...core.DBExecutor) (*float64, error)

		GetExamResult(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (ExamResult, error)
		// UpsertExamResult inserts r or replaces every field of the result of (r.UserID, r.CourseID).
		UpsertExamResult(ctx context.Context, r ExamResult, exec ...core.DBExecutor) (ExamResult, error)
		// QueryExamResults lists the results of a course, all sources when source is "".
		QueryExamResults(ctx context.Context, courseID, source string, exec ...core.DBExecutor) ([]ResultWithUser, error)
	}

	Service interface {
		SetGrade(ctx context.Context, courseID string, sg SetGrade) (Grade, error)
		RecordResult(ctx context.Context, courseID string, rr RecordResult) (ExamResult, error)
		// RecordExamSubmission stores the MCQ exam result and the EXAM grade of a student, atomically.
		RecordExamSubmission(ctx context.Context, userID, courseID string, score int, percent float64, rawData json.RawMessage) (ExamResult, error)
		RecordOMRResult(ctx context.Context, userID, courseID string, percent float64, rawData json.RawMessage) (ExamResult, error)
		ListResults(ctx context.Context, courseID string) ([]CourseResult, error)
		ExportResults(ctx context.Context, courseID, source string) ([]ExportRow, error)
		MyResult(ctx context.Context, userID, courseID string) (MyResult, error)
		MyGrades(ctx context.Context, userID string) ([]MyGrade, error)
		Metrics(ctx context.Context) (Metrics, error)
	}

	service struct {
		repo          Repository
		userSvc       user.Service
		courseSvc     course.Service
		enrollmentSvc enrollment.Service
		tx            core.Transactor
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	userSvc user.Service,
	courseSvc course.Service,
	enrollmentSvc enrollment.Service,
	tx core.Transactor,
) Service {
	return &service{
		repo:          repo,
		userSvc:       userSvc,
		courseSvc:     courseSvc,
		enrollmentSvc: enrollmentSvc,
		tx:            tx,
	}
}

// checkStudent ensures userID is a STUDENT ENROLLED in courseID.
func (svc *service) checkStudent(ctx context.Context, userID, courseID string) error {
	usr, err := svc.userSvc.GetByID(ctx, userID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return ErrInvalidStudent
		}
		return errors.Wrap(err, "getting user")
	}
	if !usr.IsStudent() {
		return ErrInvalidStudent
	}
	ok, err := svc.enrollmentSvc.IsEnrolled(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStudentNotEnrolled
	}
	return nil
}

func (svc *service) SetGrade(ctx context.Context, courseID string, sg SetGrade) (Grade, error) {
	if err := svc.checkStudent(ctx, sg.UserID, courseID); err != nil {
		return Grade{}, err
	}
	now := time.Now().UTC()
	g, err := svc.repo.UpsertGrade(ctx, Grade{
		UserID:    sg.UserID,
		CourseID:  courseID,
		Score:     *sg.Score,
		Source:    sg.Source,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return g, errors.Wrap(err, "upserting grade")
}

// loadResult returns the stored result of (userID, courseID) or a fresh one tagged `source`.
func (svc *service) loadResult(ctx context.Context, userID, courseID, source string, exec ...core.DBExecutor) (ExamResult, error) {
	r, err := svc.repo.GetExamResult(ctx, userID, courseID, exec...)
	if err == nil {
		return r, nil
	}
	if errors.Cause(err) != ErrResultNotFound {
		return ExamResult{}, errors.Wrap(err, "getting exam result")
	}
	now := time.Now().UTC()
	return ExamResult{UserID: userID, CourseID: courseID, Source: source, CreatedAt: now}, nil
}

// RecordResult upserts a result, only overwriting the provided fields.
func (svc *service) RecordResult(ctx context.Context, courseID string, rr RecordResult) (ExamResult, error) {
	if err := svc.checkStudent(ctx, rr.UserID, courseID); err != nil {
		return ExamResult{}, err
	}
	r, err := svc.loadResult(ctx, rr.UserID, courseID, ResultManual)
	if err != nil {
		return ExamResult{}, err
	}
	if rr.CalculatedScore != nil {
		r.CalculatedScore = rr.CalculatedScore
	}
	if rr.RawData != nil {
		r.RawData = rr.RawData
	}
	r.UpdatedAt = time.Now().UTC()
	r, err = svc.repo.UpsertExamResult(ctx, r)
	return r, errors.Wrap(err, "upserting exam result")
}

func (svc *service) RecordExamSubmission(ctx context.Context, userID, courseID string, score int, percent float64, rawData json.RawMessage) (ExamResult, error) {
	var r ExamResult
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if r, err = svc.loadResult(ctx, userID, courseID, ResultMCQ, exec); err != nil {
			return err
		}
		now := time.Now().UTC()
		r.Score = &score
		r.CalculatedScore = &percent
		r.Source = ResultMCQ
		r.RawData = rawData
		r.UpdatedAt = now
		if r, err = svc.repo.UpsertExamResult(ctx, r, exec); err != nil {
			return errors.Wrap(err, "upserting exam result")
		}

		_, err = svc.repo.UpsertGrade(ctx, Grade{
			UserID:    userID,
			CourseID:  courseID,
			Score:     percent,
			Source:    GradeExam,
			CreatedAt: now,
			UpdatedAt: now,
		}, exec)
		return errors.Wrap(err, "upserting grade")
	})
	return r, err
}

func (svc *service) RecordOMRResult(ctx context.Context, userID, courseID string, percent float64, rawData json.RawMessage) (ExamResult, error) {
	r, err := svc.loadResult(ctx, userID, courseID, ResultOMR)
	if err != nil {
		return ExamResult{}, err
	}
	r.CalculatedScore = &percent
	r.RawData = rawData
	r.Source = ResultOMR
	r.UpdatedAt = time.Now().UTC()
	r, err = svc.repo.UpsertExamResult(ctx, r)
	return r, errors.Wrap(err, "upserting exam result")
}

func (svc *service) ListResults(ctx context.Context, courseID string) ([]CourseResult, error) {
	rows, err := svc.repo.QueryExamResults(ctx, courseID, "")
	if err != nil {
		return nil, errors.Wrap(err, "querying exam results")
	}
	results := make([]CourseResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, CourseResult{
			ID:              row.ID,
			UserID:          row.UserID,
			CourseID:        row.CourseID,
			CalculatedScore: row.CalculatedScore,
			User:            row.User,
		})
	}
	return results, nil
}

func (svc *service) ExportResults(ctx context.Context, courseID, source string) ([]ExportRow, error) {
	rows, err := svc.repo.QueryExamResults(ctx, courseID, source)
	if err != nil {
		return nil, errors.Wrap(err, "querying exam results")
	}
	export := make([]ExportRow, 0, len(rows))
	for _, row := range rows {
		usr := user.User{FirstName: row.User.FirstName, LastName: row.User.LastName}
		raw := row.RawData
		if raw == nil {
			raw = json.RawMessage("null")
		}
		export = append(export, ExportRow{
			ID:              row.ID,
			UserID:          row.UserID,
			CourseID:        row.CourseID,
			StudentNumber:   row.User.StudentNumber,
			Name:            usr.Name(),
			CalculatedScore: row.CalculatedScore,
			RawData:         raw,
		})
	}
	return export, nil
}

func (svc *service) MyResult(ctx context.Context, userID, courseID string) (MyResult, error) {
	r, err := svc.repo.GetExamResult(ctx, userID, courseID)
	if err != nil {
		if errors.Cause(err) == ErrResultNotFound {
			return MyResult{}, nil
		}
		return MyResult{}, errors.Wrap(err, "getting exam result")
	}
	return MyResult{ID: &r.ID, CalculatedScore: r.CalculatedScore}, nil
}

func (svc *service) MyGrades(ctx context.Context, userID string) ([]MyGrade, error) {
	grades, err := svc.repo.QueryUserGrades(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []MyGrade{}
	}
	return grades, nil
}

func (svc *service) Metrics(ctx context.Context) (Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.TotalCourses, err = svc.courseSvc.Count(ctx); err != nil {
		return Metrics{}, err
	}
	if m.TotalStudents, err = svc.userSvc.Count(ctx, &user.QueryFilter{Roles: []string{user.RoleStudent}}); err != nil {
		return Metrics{}, err
	}
	if m.TotalEnrolledStudents, err = svc.enrollmentSvc.CountEnrolledStudents(ctx); err != nil {
		return Metrics{}, err
	}
	if m.AverageGrade, err = svc.repo.AverageGrade(ctx); err != nil {
		return Metrics{}, errors.Wrap(err, "averaging grades")
	}
	return m, nil
}
