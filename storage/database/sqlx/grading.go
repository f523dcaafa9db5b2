package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/grading"
)

var resultColumns = []string{
	"id", "user_id", "course_id", "score", "calculated_score", "source", "raw_data", "created_at", "updated_at",
}

type upserted struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

type resultRow struct {
	ID              string          `db:"id"`
	UserID          string          `db:"user_id"`
	CourseID        string          `db:"course_id"`
	Score           sql.NullInt64   `db:"score"`
	CalculatedScore sql.NullFloat64 `db:"calculated_score"`
	Source          string          `db:"source"`
	RawData         []byte          `db:"raw_data"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r resultRow) result() grading.ExamResult {
	res := grading.ExamResult{
		ID:        r.ID,
		UserID:    r.UserID,
		CourseID:  r.CourseID,
		Source:    r.Source,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.Score.Valid {
		score := int(r.Score.Int64)
		res.Score = &score
	}
	if r.CalculatedScore.Valid {
		score := r.CalculatedScore.Float64
		res.CalculatedScore = &score
	}
	if len(r.RawData) > 0 {
		res.RawData = json.RawMessage(r.RawData)
	}
	return res
}

type resultWithUserRow struct {
	resultRow
	FirstName     string         `db:"first_name"`
	LastName      string         `db:"last_name"`
	StudentNumber sql.NullString `db:"student_number"`
}

type gradingRepository struct {
	repository
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *sqlx.DB) *gradingRepository {
	return &gradingRepository{repository{db: db}}
}

func (repo gradingRepository) upsert(ctx context.Context, qb sq.InsertBuilder, exec []core.DBExecutor) (upserted, error) {
	var res upserted
	query, args, err := qb.ToSql()
	if err != nil {
		return res, errors.Wrap(err, "building upsert")
	}
	err = sqlx.GetContext(ctx, repo.getExec(exec), &res, query, args...)
	return res, err
}

func (repo gradingRepository) UpsertGrade(ctx context.Context, g grading.Grade, exec ...core.DBExecutor) (grading.Grade, error) {
	qb := psql.Insert("grades").
		Columns("id", "user_id", "course_id", "score", "source", "created_at", "updated_at").
		Values(uuid.NewString(), g.UserID, g.CourseID, g.Score, g.Source, g.CreatedAt.UTC(), g.UpdatedAt.UTC()).
		Suffix("ON CONFLICT (user_id, course_id) DO UPDATE " +
			"SET score = EXCLUDED.score, source = EXCLUDED.source, updated_at = EXCLUDED.updated_at " +
			"RETURNING id, created_at")
	res, err := repo.upsert(ctx, qb, exec)
	if err != nil {
		return grading.Grade{}, errors.Wrap(err, "upserting grade")
	}
	g.ID, g.CreatedAt = res.ID, res.CreatedAt.UTC()
	return g, nil
}

func (repo gradingRepository) QueryUserGrades(ctx context.Context, userID string, exec ...core.DBExecutor) ([]grading.MyGrade, error) {
	query, args, err := psql.Select("g.id", "g.course_id", "c.title AS course_title", "g.score", "g.source").
		From("grades g").
		Join("courses c ON c.id = g.course_id").
		Where(sq.Eq{"g.user_id": userID}).
		OrderBy("g.updated_at DESC", "g.id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building grades query")
	}
	grades := make([]grading.MyGrade, 0)
	rows, err := repo.getExec(exec).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	defer rows.Close()
	for rows.Next() {
		var g struct {
			ID          string  `db:"id"`
			CourseID    string  `db:"course_id"`
			CourseTitle string  `db:"course_title"`
			Score       float64 `db:"score"`
			Source      string  `db:"source"`
		}
		if err = rows.StructScan(&g); err != nil {
			return nil, errors.Wrap(err, "scanning grade")
		}
		grades = append(grades, grading.MyGrade(g))
	}
	return grades, errors.Wrap(rows.Err(), "iterating grades")
}

func (repo gradingRepository) AverageGrade(ctx context.Context, exec ...core.DBExecutor) (*float64, error) {
	var avg sql.NullFloat64
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &avg, "SELECT AVG(score) FROM grades"); err != nil {
		return nil, errors.Wrap(err, "averaging grades")
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

func (repo gradingRepository) GetExamResult(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (grading.ExamResult, error) {
	query, args, err := psql.Select(resultColumns...).From("exam_results").
		Where(sq.Eq{"user_id": userID, "course_id": courseID}).ToSql()
	if err != nil {
		return grading.ExamResult{}, errors.Wrap(err, "building result query")
	}
	var row resultRow
	if err = sqlx.GetContext(ctx, repo.getExec(exec), &row, query, args...); err != nil {
		return grading.ExamResult{}, trapNoRowsErr(err, grading.ErrResultNotFound, "finding exam result")
	}
	return row.result(), nil
}

func (repo gradingRepository) UpsertExamResult(ctx context.Context, r grading.ExamResult, exec ...core.DBExecutor) (grading.ExamResult, error) {
	var score sql.NullInt64
	if r.Score != nil {
		score = sql.NullInt64{Int64: int64(*r.Score), Valid: true}
	}
	var calculated sql.NullFloat64
	if r.CalculatedScore != nil {
		calculated = sql.NullFloat64{Float64: *r.CalculatedScore, Valid: true}
	}
	// lib/pq sends []byte as bytea
	var raw sql.NullString
	if len(r.RawData) > 0 {
		raw = sql.NullString{String: string(r.RawData), Valid: true}
	}

	qb := psql.Insert("exam_results").Columns(resultColumns...).
		Values(uuid.NewString(), r.UserID, r.CourseID, score, calculated, r.Source, raw, r.CreatedAt.UTC(), r.UpdatedAt.UTC()).
		Suffix("ON CONFLICT (user_id, course_id) DO UPDATE " +
			"SET score = EXCLUDED.score, calculated_score = EXCLUDED.calculated_score, source = EXCLUDED.source, " +
			"raw_data = EXCLUDED.raw_data, updated_at = EXCLUDED.updated_at " +
			"RETURNING id, created_at")
	res, err := repo.upsert(ctx, qb, exec)
	if err != nil {
		return grading.ExamResult{}, errors.Wrap(err, "upserting exam result")
	}
	r.ID, r.CreatedAt = res.ID, res.CreatedAt.UTC()
	return r, nil
}

func (repo gradingRepository) QueryExamResults(ctx context.Context, courseID, source string, exec ...core.DBExecutor) ([]grading.ResultWithUser, error) {
	cols := make([]string, 0, len(resultColumns)+3)
	for _, col := range resultColumns {
		cols = append(cols, "r."+col)
	}
	cols = append(cols, "u.first_name", "u.last_name", "u.student_number")

	qb := psql.Select(cols...).
		From("exam_results r").
		Join("users u ON u.id = r.user_id").
		Where(sq.Eq{"r.course_id": courseID}).
		OrderBy("r.created_at ASC", "r.id")
	if source != "" {
		qb = qb.Where(sq.Eq{"r.source": source})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building results query")
	}
	var rows []resultWithUserRow
	if err = sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying exam results")
	}
	results := make([]grading.ResultWithUser, 0, len(rows))
	for _, r := range rows {
		results = append(results, grading.ResultWithUser{
			ExamResult: r.result(),
			User: grading.UserSummary{
				ID:            r.UserID,
				FirstName:     r.FirstName,
				LastName:      r.LastName,
				StudentNumber: stringPtr(r.StudentNumber),
			},
		})
	}
	return results, nil
}
