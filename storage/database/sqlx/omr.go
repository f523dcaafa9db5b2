package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/omr"
)

type answerKeyRow struct {
	CourseID  string         `db:"course_id"`
	Answers   pq.StringArray `db:"answers"`
	UpdatedAt time.Time      `db:"updated_at"`
}

type omrRepository struct {
	repository
}

var _ omr.Repository = (*omrRepository)(nil) // interface compliance check

func NewOMRRepository(db *sqlx.DB) *omrRepository {
	return &omrRepository{repository{db: db}}
}

func (repo omrRepository) GetAnswerKey(ctx context.Context, courseID string, exec ...core.DBExecutor) (omr.AnswerKey, error) {
	query, args, err := psql.Select("course_id", "answers", "updated_at").From("omr_answer_keys").
		Where(sq.Eq{"course_id": courseID}).ToSql()
	if err != nil {
		return omr.AnswerKey{}, errors.Wrap(err, "building answer key query")
	}
	var row answerKeyRow
	if err = sqlx.GetContext(ctx, repo.getExec(exec), &row, query, args...); err != nil {
		return omr.AnswerKey{}, trapNoRowsErr(err, omr.ErrAnswerKeyNotFound, "finding answer key")
	}
	return omr.AnswerKey{CourseID: row.CourseID, Answers: []string(row.Answers), UpdatedAt: row.UpdatedAt.UTC()}, nil
}

func (repo omrRepository) SaveAnswerKey(ctx context.Context, key omr.AnswerKey, exec ...core.DBExecutor) (omr.AnswerKey, error) {
	qb := psql.Insert("omr_answer_keys").Columns("course_id", "answers", "updated_at").
		Values(key.CourseID, pq.StringArray(key.Answers), key.UpdatedAt.UTC()).
		Suffix("ON CONFLICT (course_id) DO UPDATE SET answers = EXCLUDED.answers, updated_at = EXCLUDED.updated_at")
	if _, err := repo.exec(ctx, qb, exec); err != nil {
		return omr.AnswerKey{}, errors.Wrap(err, "saving answer key")
	}
	return key, nil
}
