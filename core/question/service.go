package question

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/grading"
)

var (
	// errors
	ErrInvalidModule    = core.Invalid("Invalid module")
	ErrInvalidQuestions = core.Invalid("Invalid questions")
	ErrInvalidLimit     = core.Invalid("limit must be between 1 and 50")
)

type (
	Repository interface {
		course.QuestionBank

		CreateQuestion(ctx context.Context, q Question, exec ...core.DBExecutor) (Question, error)
		// QueryQuestions returns the questions of a course by ascending creation time.
		QueryQuestions(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Question, error)
		// QueryQuestionsByID returns the questions of a course among ids.
		QueryQuestionsByID(ctx context.Context, courseID string, ids []string, exec ...core.DBExecutor) ([]Question, error)
	}

	Service interface {
		Create(ctx context.Context, courseID string, nq NewQuestion) (Question, error)
		// List returns the question bank of a course; answers are only kept when withAnswers.
		List(ctx context.Context, courseID string, withAnswers bool) ([]Question, error)
		// Random draws up to `limit` distinct questions of a course, uniformly.
		Random(ctx context.Context, courseID string, limit int, withAnswers bool) ([]Question, error)
		Submit(ctx context.Context, userID, courseID string, sub Submission) (SubmissionResult, error)
	}

	service struct {
		repo       Repository
		courseSvc  course.Service
		gradingSvc grading.Service
		shuffle    func(n int, swap func(i, j int))
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service, gradingSvc grading.Service) Service {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &service{
		repo:       repo,
		courseSvc:  courseSvc,
		gradingSvc: gradingSvc,
		shuffle:    rnd.Shuffle,
	}
}

func (svc *service) Create(ctx context.Context, courseID string, nq NewQuestion) (Question, error) {
	if _, err := svc.courseSvc.Get(ctx, courseID); err != nil {
		return Question{}, err
	}
	if nq.ModuleID != nil {
		m, err := svc.courseSvc.GetModule(ctx, *nq.ModuleID)
		if err != nil {
			if errors.Cause(err) == course.ErrModuleNotFound {
				return Question{}, ErrInvalidModule
			}
			return Question{}, err
		}
		if m.CourseID != courseID {
			return Question{}, ErrInvalidModule
		}
	}

	q, err := svc.repo.CreateQuestion(ctx, Question{
		CourseID:  courseID,
		ModuleID:  nq.ModuleID,
		Text:      nq.Text,
		Options:   nq.Options,
		Answer:    nq.Answer,
		Source:    nq.Source,
		CreatedAt: time.Now().UTC(),
	})
	return q, errors.Wrap(err, "creating question")
}

func (svc *service) List(ctx context.Context, courseID string, withAnswers bool) ([]Question, error) {
	questions, err := svc.repo.QueryQuestions(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	return present(questions, withAnswers), nil
}

func (svc *service) Random(ctx context.Context, courseID string, limit int, withAnswers bool) ([]Question, error) {
	if limit < 1 || limit > MaxRandomLimit {
		return nil, ErrInvalidLimit
	}
	questions, err := svc.repo.QueryQuestions(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	svc.shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	if len(questions) > limit {
		questions = questions[:limit]
	}
	return present(questions, withAnswers), nil
}

// Submit grades the answers of a student against the question bank, then stores the MCQ exam result
// and the EXAM grade of the course.
func (svc *service) Submit(ctx context.Context, userID, courseID string, sub Submission) (SubmissionResult, error) {
	ids := make([]string, 0, len(sub.Answers))
	answers := make(map[string]int, len(sub.Answers))
	for _, a := range sub.Answers {
		ids = append(ids, a.QuestionID)
		answers[a.QuestionID] = *a.Answer
	}

	questions, err := svc.repo.QueryQuestionsByID(ctx, courseID, ids)
	if err != nil {
		return SubmissionResult{}, errors.Wrap(err, "querying questions")
	}
	if len(questions) != len(ids) {
		return SubmissionResult{}, ErrInvalidQuestions
	}

	score := 0
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok && q.Answer != nil && a == *q.Answer {
			score++
		}
	}
	total := len(questions)
	percent := float64(core.Percent(score, total))

	raw, err := json.Marshal(map[string]interface{}{"answers": sub.Answers})
	if err != nil {
		return SubmissionResult{}, errors.Wrap(err, "encoding answers")
	}
	res, err := svc.gradingSvc.RecordExamSubmission(ctx, userID, courseID, score, percent, raw)
	if err != nil {
		return SubmissionResult{}, err
	}
	return SubmissionResult{ID: res.ID, Score: score, Total: total}, nil
}

func present(questions []Question, withAnswers bool) []Question {
	result := make([]Question, 0, len(questions))
	for _, q := range questions {
		if !withAnswers {
			q = q.Public()
		}
		result = append(result, q)
	}
	return result
}
