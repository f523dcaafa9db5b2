package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/question"
)

type questionRepository struct {
	db *DB
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *DB) *questionRepository {
	return &questionRepository{db: db}
}

func (repo *questionRepository) CreateQuestion(_ context.Context, q question.Question, _ ...core.DBExecutor) (question.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	q.ID = uuid.NewString()
	q.Options = copyStrings(q.Options)
	repo.db.questions.insert(q.ID, q)
	return q, nil
}

func (repo *questionRepository) query(courseID string) []question.Question {
	questions := make([]question.Question, 0)
	for _, q := range repo.db.questions.all() {
		if q.CourseID == courseID {
			q.Options = copyStrings(q.Options)
			questions = append(questions, q)
		}
	}
	return questions
}

func (repo *questionRepository) QueryQuestions(_ context.Context, courseID string, _ ...core.DBExecutor) ([]question.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(courseID), nil
}

func (repo *questionRepository) QueryQuestionsByID(_ context.Context, courseID string, ids []string, _ ...core.DBExecutor) ([]question.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	questions := make([]question.Question, 0, len(ids))
	for _, q := range repo.query(courseID) {
		if wanted[q.ID] {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

func (repo *questionRepository) CopyQuestions(_ context.Context, fromCourseID, toCourseID string, moduleIDs map[string]string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	now := time.Now().UTC()
	for _, q := range repo.query(fromCourseID) {
		q.ID = uuid.NewString()
		q.CourseID = toCourseID
		if q.ModuleID != nil {
			if id, ok := moduleIDs[*q.ModuleID]; ok {
				q.ModuleID = &id
			} else {
				q.ModuleID = nil
			}
		}
		q.CreatedAt = now
		repo.db.questions.insert(q.ID, q)
	}
	return nil
}
