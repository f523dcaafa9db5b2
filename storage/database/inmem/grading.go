package inmemdb

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/grading"
)

type gradingRepository struct {
	db *DB
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *DB) *gradingRepository {
	return &gradingRepository{db: db}
}

func (repo *gradingRepository) UpsertGrade(_ context.Context, g grading.Grade, _ ...core.DBExecutor) (grading.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if existing, ok := repo.db.grade(g.UserID, g.CourseID); ok {
		g.ID, g.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		g.ID = uuid.NewString()
	}
	repo.db.grades.insert(g.ID, g)
	return g, nil
}

func (repo *gradingRepository) QueryUserGrades(_ context.Context, userID string, _ ...core.DBExecutor) ([]grading.MyGrade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var own []grading.Grade
	for _, g := range repo.db.grades.all() {
		if g.UserID == userID {
			own = append(own, g)
		}
	}
	sort.SliceStable(own, func(i, j int) bool { return own[i].UpdatedAt.After(own[j].UpdatedAt) })

	grades := make([]grading.MyGrade, 0, len(own))
	for _, g := range own {
		c, ok := repo.db.courses.get(g.CourseID)
		if !ok {
			continue
		}
		grades = append(grades, grading.MyGrade{
			ID:          g.ID,
			CourseID:    g.CourseID,
			CourseTitle: c.Title,
			Score:       g.Score,
			Source:      g.Source,
		})
	}
	return grades, nil
}

func (repo *gradingRepository) AverageGrade(_ context.Context, _ ...core.DBExecutor) (*float64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	grades := repo.db.grades.all()
	if len(grades) == 0 {
		return nil, nil
	}
	var sum float64
	for _, g := range grades {
		sum += g.Score
	}
	avg := sum / float64(len(grades))
	return &avg, nil
}

func (db *DB) examResult(userID, courseID string) (grading.ExamResult, bool) {
	for _, r := range db.results.all() {
		if r.UserID == userID && r.CourseID == courseID {
			return r, true
		}
	}
	return grading.ExamResult{}, false
}

func (repo *gradingRepository) GetExamResult(_ context.Context, userID, courseID string, _ ...core.DBExecutor) (grading.ExamResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.examResult(userID, courseID); ok {
		return r, nil
	}
	return grading.ExamResult{}, grading.ErrResultNotFound
}

func (repo *gradingRepository) UpsertExamResult(_ context.Context, r grading.ExamResult, _ ...core.DBExecutor) (grading.ExamResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if existing, ok := repo.db.examResult(r.UserID, r.CourseID); ok {
		r.ID, r.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		r.ID = uuid.NewString()
	}
	if r.RawData != nil {
		r.RawData = append(json.RawMessage(nil), r.RawData...)
	}
	repo.db.results.insert(r.ID, r)
	return r, nil
}

func (repo *gradingRepository) QueryExamResults(_ context.Context, courseID, source string, _ ...core.DBExecutor) ([]grading.ResultWithUser, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	results := make([]grading.ResultWithUser, 0)
	for _, r := range repo.db.results.all() {
		if r.CourseID != courseID || (source != "" && r.Source != source) {
			continue
		}
		usr, ok := repo.db.users.get(r.UserID)
		if !ok {
			continue
		}
		summary := grading.UserSummary{ID: usr.ID, FirstName: usr.FirstName, LastName: usr.LastName}
		if usr.StudentNumber != "" {
			number := usr.StudentNumber
			summary.StudentNumber = &number
		}
		results = append(results, grading.ResultWithUser{ExamResult: r, User: summary})
	}
	return results, nil
}
