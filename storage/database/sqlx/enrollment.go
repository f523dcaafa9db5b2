package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/enrollment"
)

var enrollmentColumns = []string{"id", "user_id", "course_id", "status", "created_at", "updated_at"}

type enrollmentRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CourseID  string    `db:"course_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r enrollmentRow) enrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:        r.ID,
		UserID:    r.UserID,
		CourseID:  r.CourseID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type studentRow struct {
	ID            string          `db:"id"`
	UserID        string          `db:"user_id"`
	FirstName     string          `db:"first_name"`
	LastName      string          `db:"last_name"`
	StudentNumber sql.NullString  `db:"student_number"`
	Status        string          `db:"status"`
	Score         sql.NullFloat64 `db:"score"`
	Source        sql.NullString  `db:"source"`
}

func (r studentRow) student() enrollment.Student {
	s := enrollment.Student{
		ID:            r.ID,
		UserID:        r.UserID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		StudentNumber: stringPtr(r.StudentNumber),
		Status:        r.Status,
		Source:        stringPtr(r.Source),
	}
	if r.Score.Valid {
		score := r.Score.Float64
		s.Score = &score
	}
	return s
}

type enrollmentRepository struct {
	repository
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{repository{db: db}}
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	e.ID = uuid.NewString()
	qb := psql.Insert("enrollments").Columns(enrollmentColumns...).
		Values(e.ID, e.UserID, e.CourseID, e.Status, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	if _, err := repo.exec(ctx, qb, exec); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo enrollmentRepository) UpdateEnrollment(ctx context.Context, e enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	qb := psql.Update("enrollments").
		Set("status", e.Status).
		Set("updated_at", e.UpdatedAt.UTC()).
		Where(sq.Eq{"id": e.ID})
	res, err := repo.exec(ctx, qb, exec)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return e, nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, filter enrollment.GetFilter, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	qb := psql.Select(enrollmentColumns...).From("enrollments")
	switch {
	case filter.ID != "":
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.UserID != "" && filter.CourseID != "":
		qb = qb.Where(sq.Eq{"user_id": filter.UserID, "course_id": filter.CourseID})
	default:
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "building enrollment query")
	}
	var row enrollmentRow
	if err = sqlx.GetContext(ctx, repo.getExec(exec), &row, query, args...); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return row.enrollment(), nil
}

func (repo enrollmentRepository) QueryStudents(ctx context.Context, courseID, status string, exec ...core.DBExecutor) ([]enrollment.Student, error) {
	qb := psql.Select(
		"e.id", "e.user_id", "u.first_name", "u.last_name", "u.student_number", "e.status", "g.score", "g.source",
	).
		From("enrollments e").
		Join("users u ON u.id = e.user_id").
		LeftJoin("grades g ON g.user_id = e.user_id AND g.course_id = e.course_id").
		Where(sq.Eq{"e.course_id": courseID}).
		OrderBy("e.created_at ASC", "e.id")
	if status != "" {
		qb = qb.Where(sq.Eq{"e.status": status})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building students query")
	}
	var rows []studentRow
	if err = sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]enrollment.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo enrollmentRepository) CountEnrolledStudents(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	query, args, err := psql.Select("COUNT(DISTINCT user_id)").From("enrollments").
		Where(sq.Eq{"status": enrollment.StatusEnrolled}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building count query")
	}
	var cnt int
	err = sqlx.GetContext(ctx, repo.getExec(exec), &cnt, query, args...)
	return cnt, errors.Wrap(err, "counting enrolled students")
}
