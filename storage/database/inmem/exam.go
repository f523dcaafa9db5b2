package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/exam"
)

type examRepository struct {
	db *DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) *examRepository {
	return &examRepository{db: db}
}

func (repo *examRepository) CreateExam(_ context.Context, e exam.Exam, _ ...core.DBExecutor) (exam.Exam, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e.ID = uuid.NewString()
	e.Questions = nil
	repo.db.exams.insert(e.ID, e)
	return e, nil
}

func (repo *examRepository) GetExam(_ context.Context, id string, _ ...core.DBExecutor) (exam.Exam, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.exams.get(id); ok {
		return e, nil
	}
	return exam.Exam{}, exam.ErrNotFound
}

func (repo *examRepository) CreateQuestion(_ context.Context, q exam.Question, _ ...core.DBExecutor) (exam.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	q.ID = uuid.NewString()
	q.Choices = copyStrings(q.Choices)
	repo.db.examQuestions.insert(q.ID, q)
	return q, nil
}

func (repo *examRepository) QueryQuestions(_ context.Context, examID string, _ ...core.DBExecutor) ([]exam.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	questions := make([]exam.Question, 0)
	for _, q := range repo.db.examQuestions.all() {
		if q.ExamID == examID {
			q.Choices = copyStrings(q.Choices)
			questions = append(questions, q)
		}
	}
	return questions, nil
}

func (repo *examRepository) CreateAttempt(_ context.Context, a exam.Attempt, _ ...core.DBExecutor) (exam.Attempt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = uuid.NewString()
	repo.db.attempts.insert(a.ID, a)
	return a, nil
}
