package inmemdb

import (
	"context"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/omr"
)

type omrRepository struct {
	db *DB
}

var _ omr.Repository = (*omrRepository)(nil) // interface compliance check

func NewOMRRepository(db *DB) *omrRepository {
	return &omrRepository{db: db}
}

func (repo *omrRepository) GetAnswerKey(_ context.Context, courseID string, _ ...core.DBExecutor) (omr.AnswerKey, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if key, ok := repo.db.answerKeys.get(courseID); ok {
		key.Answers = copyStrings(key.Answers)
		return key, nil
	}
	return omr.AnswerKey{}, omr.ErrAnswerKeyNotFound
}

func (repo *omrRepository) SaveAnswerKey(_ context.Context, key omr.AnswerKey, _ ...core.DBExecutor) (omr.AnswerKey, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key.Answers = copyStrings(key.Answers)
	repo.db.answerKeys.insert(key.CourseID, key)
	return key, nil
}
