package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/question"
)

var questionColumns = []string{"id", "course_id", "module_id", "text", "options", "answer", "source", "created_at"}

type questionRow struct {
	ID        string         `db:"id"`
	CourseID  string         `db:"course_id"`
	ModuleID  sql.NullString `db:"module_id"`
	Text      string         `db:"text"`
	Options   pq.StringArray `db:"options"`
	Answer    int            `db:"answer"`
	Source    string         `db:"source"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r questionRow) question() question.Question {
	answer := r.Answer
	return question.Question{
		ID:        r.ID,
		CourseID:  r.CourseID,
		ModuleID:  stringPtr(r.ModuleID),
		Text:      r.Text,
		Options:   []string(r.Options),
		Answer:    &answer,
		Source:    r.Source,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type questionRepository struct {
	repository
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *sqlx.DB) *questionRepository {
	return &questionRepository{repository{db: db}}
}

func (repo questionRepository) values(q question.Question) []interface{} {
	answer := 0
	if q.Answer != nil {
		answer = *q.Answer
	}
	return []interface{}{
		q.ID, q.CourseID, nullString(q.ModuleID), q.Text, pq.StringArray(q.Options), answer, q.Source, q.CreatedAt.UTC(),
	}
}

func (repo questionRepository) CreateQuestion(ctx context.Context, q question.Question, exec ...core.DBExecutor) (question.Question, error) {
	q.ID = uuid.NewString()
	qb := psql.Insert("questions").Columns(questionColumns...).Values(repo.values(q)...)
	if _, err := repo.exec(ctx, qb, exec); err != nil {
		return question.Question{}, errors.Wrap(err, "inserting question")
	}
	return q, nil
}

func (repo questionRepository) query(ctx context.Context, where sq.Sqlizer, exec []core.DBExecutor) ([]question.Question, error) {
	query, args, err := psql.Select(questionColumns...).From("questions").Where(where).
		OrderBy("created_at ASC", "id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building questions query")
	}
	var rows []questionRow
	if err = sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	questions := make([]question.Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, r.question())
	}
	return questions, nil
}

func (repo questionRepository) QueryQuestions(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]question.Question, error) {
	return repo.query(ctx, sq.Eq{"course_id": courseID}, exec)
}

func (repo questionRepository) QueryQuestionsByID(ctx context.Context, courseID string, ids []string, exec ...core.DBExecutor) ([]question.Question, error) {
	if len(ids) == 0 {
		return []question.Question{}, nil
	}
	return repo.query(ctx, sq.Eq{"course_id": courseID, "id": ids}, exec)
}

func (repo questionRepository) CopyQuestions(ctx context.Context, fromCourseID, toCourseID string, moduleIDs map[string]string, exec ...core.DBExecutor) error {
	questions, err := repo.QueryQuestions(ctx, fromCourseID, exec...)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return nil
	}

	now := time.Now().UTC()
	qb := psql.Insert("questions").Columns(questionColumns...)
	for _, q := range questions {
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
		qb = qb.Values(repo.values(q)...)
	}
	_, err = repo.exec(ctx, qb, exec)
	return errors.Wrap(err, "copying questions")
}
