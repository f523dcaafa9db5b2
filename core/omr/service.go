package omr

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrAnswerKeyNotFound = core.NotFound("Answer key not found")
	ErrInvalidImage      = core.Invalid("Invalid image")
)

type (
	// Scanner reads the bubbles of an OMR sheet image.
	Scanner interface {
		Scan(ctx context.Context, mode Mode, image []byte) (ScanResult, error)
	}

	Repository interface {
		GetAnswerKey(ctx context.Context, courseID string, exec ...core.DBExecutor) (AnswerKey, error)
		// SaveAnswerKey creates or replaces the answer key of a course.
		SaveAnswerKey(ctx context.Context, key AnswerKey, exec ...core.DBExecutor) (AnswerKey, error)
	}

	Service interface {
		ProcessAnswerKey(ctx context.Context, req Request) (AnswerKeyResult, error)
		ProcessStudentSheet(ctx context.Context, req Request) (GradeResult, error)
		SampleAnswerKey(ctx context.Context, courseID string) (AnswerKeyResult, error)
		SampleStudentSheet(ctx context.Context, courseID string) (GradeResult, error)
		Export(ctx context.Context, courseID string) ([]grading.ExportRow, error)
	}

	service struct {
		repo          Repository
		scanner       Scanner
		store         core.ObjectStore
		courseSvc     course.Service
		userSvc       user.Service
		enrollmentSvc enrollment.Service
		gradingSvc    grading.Service
		logger        core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	scanner Scanner,
	store core.ObjectStore,
	courseSvc course.Service,
	userSvc user.Service,
	enrollmentSvc enrollment.Service,
	gradingSvc grading.Service,
	logger core.Logger,
) Service {
	return &service{
		repo:          repo,
		scanner:       scanner,
		store:         store,
		courseSvc:     courseSvc,
		userSvc:       userSvc,
		enrollmentSvc: enrollmentSvc,
		gradingSvc:    gradingSvc,
		logger:        logger,
	}
}

func (svc *service) scan(ctx context.Context, mode Mode, objectKey string) (ScanResult, error) {
	image, err := svc.store.Get(ctx, objectKey)
	if err != nil {
		return ScanResult{}, errors.Wrap(err, "downloading sheet")
	}
	res, err := svc.scanner.Scan(ctx, mode, image)
	if err != nil {
		return ScanResult{}, errors.Wrap(err, "scanning sheet")
	}
	if res.Answers == nil {
		res.Answers = []string{}
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	return res, nil
}

func (svc *service) saveKey(ctx context.Context, courseID string, answers []string) error {
	_, err := svc.repo.SaveAnswerKey(ctx, AnswerKey{
		CourseID:  courseID,
		Answers:   answers,
		UpdatedAt: time.Now().UTC(),
	})
	return errors.Wrap(err, "saving answer key")
}

func (svc *service) ProcessAnswerKey(ctx context.Context, req Request) (AnswerKeyResult, error) {
	if _, err := svc.courseSvc.Get(ctx, req.CourseID); err != nil {
		return AnswerKeyResult{}, err
	}
	res, err := svc.scan(ctx, ModeAnswer, req.ObjectKey)
	if err != nil {
		return AnswerKeyResult{}, err
	}
	if err = svc.saveKey(ctx, req.CourseID, res.Answers); err != nil {
		return AnswerKeyResult{}, err
	}
	return AnswerKeyResult{
		OK:         true,
		Answers:    res.Answers,
		Total:      res.Total,
		Warnings:   res.Warnings,
		DebugImage: res.DebugImage,
	}, nil
}

// enrolledStudent returns the ID of the student owning studentNumber when ENROLLED in courseID.
// found reports whether a user owns studentNumber at all.
func (svc *service) enrolledStudent(ctx context.Context, studentNumber, courseID string) (userID string, found bool, err error) {
	usr, err := svc.userSvc.GetByStudentNumber(ctx, studentNumber)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "getting user by student number")
	}
	ok, err := svc.enrollmentSvc.IsEnrolled(ctx, usr.ID, courseID)
	if err != nil || !ok {
		return "", true, err
	}
	return usr.ID, true, nil
}

func (svc *service) ProcessStudentSheet(ctx context.Context, req Request) (GradeResult, error) {
	key, err := svc.repo.GetAnswerKey(ctx, req.CourseID)
	if err != nil {
		return GradeResult{}, err
	}
	res, err := svc.scan(ctx, ModeGrade, req.ObjectKey)
	if err != nil {
		return GradeResult{}, err
	}

	correct, total, score := Score(key.Answers, res.Answers)
	result := GradeResult{
		OK:            true,
		StudentNumber: res.StudentNumber,
		Answers:       res.Answers,
		Correct:       correct,
		Total:         total,
		Score:         score,
		Warnings:      res.Warnings,
		DebugImage:    res.DebugImage,
	}
	if res.StudentNumber == "" {
		return result, nil
	}

	userID, found, err := svc.enrolledStudent(ctx, res.StudentNumber, req.CourseID)
	if err != nil {
		return GradeResult{}, err
	}
	if !found {
		return result, nil
	}
	if userID == "" {
		result.Warnings = []string{WarnNotEnrolled}
		return result, nil
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return GradeResult{}, errors.Wrap(err, "encoding scan")
	}
	if _, err = svc.gradingSvc.RecordOMRResult(ctx, userID, req.CourseID, float64(score), raw); err != nil {
		return GradeResult{}, err
	}
	result.UserID = &userID
	return result, nil
}

func (svc *service) SampleAnswerKey(ctx context.Context, courseID string) (AnswerKeyResult, error) {
	if _, err := svc.courseSvc.Get(ctx, courseID); err != nil {
		return AnswerKeyResult{}, err
	}
	answers := append([]string(nil), SampleAnswers...)
	if err := svc.saveKey(ctx, courseID, answers); err != nil {
		return AnswerKeyResult{}, err
	}
	return AnswerKeyResult{OK: true, Answers: answers, Total: len(answers), Warnings: []string{}}, nil
}

func (svc *service) SampleStudentSheet(ctx context.Context, courseID string) (GradeResult, error) {
	key, err := svc.repo.GetAnswerKey(ctx, courseID)
	if err != nil {
		return GradeResult{}, err
	}
	answers := SampleSheet(key.Answers)
	correct, total, score := Score(key.Answers, answers)
	result := GradeResult{
		OK:            true,
		StudentNumber: SampleStudentNumber,
		Answers:       answers,
		Correct:       correct,
		Total:         total,
		Score:         score,
		Warnings:      []string{},
	}

	userID, _, err := svc.enrolledStudent(ctx, SampleStudentNumber, courseID)
	if err != nil {
		return GradeResult{}, err
	}
	if userID == "" {
		result.Warnings = []string{WarnSampleNoStudent}
		return result, nil
	}

	raw, err := json.Marshal(map[string]interface{}{
		"student_number": SampleStudentNumber,
		"answers":        answers,
		"correct":        correct,
		"total":          total,
	})
	if err != nil {
		return GradeResult{}, errors.Wrap(err, "encoding sample sheet")
	}
	if _, err = svc.gradingSvc.RecordOMRResult(ctx, userID, courseID, float64(score), raw); err != nil {
		return GradeResult{}, err
	}
	result.UserID = &userID
	return result, nil
}

func (svc *service) Export(ctx context.Context, courseID string) ([]grading.ExportRow, error) {
	return svc.gradingSvc.ExportResults(ctx, courseID, grading.ResultOMR)
}
