package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/grading"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e enrollment.Enrollment, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e.ID = uuid.NewString()
	repo.db.enrollments.insert(e.ID, e)
	return e, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(_ context.Context, e enrollment.Enrollment, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.enrollments.update(e.ID, e) {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return e, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, filter enrollment.GetFilter, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if e, ok := repo.db.enrollments.get(filter.ID); ok {
			return e, nil
		}
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	for _, e := range repo.db.enrollments.all() {
		if e.UserID == filter.UserID && e.CourseID == filter.CourseID {
			return e, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

// grade returns the grade of a user in a course; the caller holds the lock.
func (db *DB) grade(userID, courseID string) (grading.Grade, bool) {
	for _, g := range db.grades.all() {
		if g.UserID == userID && g.CourseID == courseID {
			return g, true
		}
	}
	return grading.Grade{}, false
}

func (repo *enrollmentRepository) QueryStudents(_ context.Context, courseID, status string, _ ...core.DBExecutor) ([]enrollment.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]enrollment.Student, 0)
	for _, e := range repo.db.enrollments.all() {
		if e.CourseID != courseID || (status != "" && e.Status != status) {
			continue
		}
		usr, ok := repo.db.users.get(e.UserID)
		if !ok {
			continue
		}
		s := enrollment.Student{
			ID:        e.ID,
			UserID:    e.UserID,
			FirstName: usr.FirstName,
			LastName:  usr.LastName,
			Status:    e.Status,
		}
		if usr.StudentNumber != "" {
			number := usr.StudentNumber
			s.StudentNumber = &number
		}
		if g, ok := repo.db.grade(e.UserID, courseID); ok {
			score, source := g.Score, g.Source
			s.Score, s.Source = &score, &source
		}
		students = append(students, s)
	}
	return students, nil
}

func (repo *enrollmentRepository) CountEnrolledStudents(_ context.Context, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make(map[string]struct{})
	for _, e := range repo.db.enrollments.all() {
		if e.Status == enrollment.StatusEnrolled {
			users[e.UserID] = struct{}{}
		}
	}
	return len(users), nil
}
