package exam

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

var (
	// errors
	ErrNotFound = core.NotFound("Exam not found")
)

type (
	Repository interface {
		CreateExam(ctx context.Context, e Exam, exec ...core.DBExecutor) (Exam, error)
		GetExam(ctx context.Context, id string, exec ...core.DBExecutor) (Exam, error)
		CreateQuestion(ctx context.Context, q Question, exec ...core.DBExecutor) (Question, error)
		// QueryQuestions returns the questions of an exam by ascending creation time.
		QueryQuestions(ctx context.Context, examID string, exec ...core.DBExecutor) ([]Question, error)
		CreateAttempt(ctx context.Context, a Attempt, exec ...core.DBExecutor) (Attempt, error)
	}

	Service interface {
		Create(ctx context.Context, courseID string, ne NewExam) (Exam, error)
		AddQuestion(ctx context.Context, examID string, nq NewQuestion) (Question, error)
		// Get returns an exam with its questions, without their correct index.
		Get(ctx context.Context, id string) (Exam, error)
		SubmitAttempt(ctx context.Context, examID, userID string, na NewAttempt) (AttemptResult, error)
	}

	service struct {
		repo      Repository
		courseSvc course.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service) Service {
	return &service{repo: repo, courseSvc: courseSvc}
}

func (svc *service) Create(ctx context.Context, courseID string, ne NewExam) (Exam, error) {
	if _, err := svc.courseSvc.Get(ctx, courseID); err != nil {
		return Exam{}, err
	}
	e, err := svc.repo.CreateExam(ctx, Exam{
		CourseID:  courseID,
		Title:     ne.Title,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Exam{}, errors.Wrap(err, "creating exam")
	}
	e.Questions = []Question{}
	return e, nil
}

func (svc *service) AddQuestion(ctx context.Context, examID string, nq NewQuestion) (Question, error) {
	if _, err := svc.repo.GetExam(ctx, examID); err != nil {
		return Question{}, err
	}
	points := 1
	if nq.Points != nil {
		points = *nq.Points
	}
	q, err := svc.repo.CreateQuestion(ctx, Question{
		ExamID:       examID,
		Text:         nq.Text,
		Choices:      nq.Choices,
		CorrectIndex: nq.CorrectIndex,
		Points:       points,
		CreatedAt:    time.Now().UTC(),
	})
	return q, errors.Wrap(err, "creating exam question")
}

func (svc *service) Get(ctx context.Context, id string) (Exam, error) {
	e, err := svc.repo.GetExam(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	questions, err := svc.repo.QueryQuestions(ctx, id)
	if err != nil {
		return Exam{}, errors.Wrap(err, "querying exam questions")
	}
	e.Questions = make([]Question, 0, len(questions))
	for _, q := range questions {
		q.CorrectIndex = nil
		e.Questions = append(e.Questions, q)
	}
	return e, nil
}

func (svc *service) SubmitAttempt(ctx context.Context, examID, userID string, na NewAttempt) (AttemptResult, error) {
	if _, err := svc.repo.GetExam(ctx, examID); err != nil {
		return AttemptResult{}, err
	}
	questions, err := svc.repo.QueryQuestions(ctx, examID)
	if err != nil {
		return AttemptResult{}, errors.Wrap(err, "querying exam questions")
	}
	score, maxScore := Score(questions, na.Answers)

	a, err := svc.repo.CreateAttempt(ctx, Attempt{
		ExamID:    examID,
		UserID:    userID,
		Answers:   na.Answers,
		Score:     score,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return AttemptResult{}, errors.Wrap(err, "creating attempt")
	}
	return AttemptResult{ID: a.ID, Score: score, MaxScore: maxScore}, nil
}
