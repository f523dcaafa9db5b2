package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/exam"
)

type examRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
}

type examQuestionRow struct {
	ID           string         `db:"id"`
	ExamID       string         `db:"exam_id"`
	Text         string         `db:"text"`
	Choices      pq.StringArray `db:"choices"`
	CorrectIndex int            `db:"correct_index"`
	Points       int            `db:"points"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r examQuestionRow) question() exam.Question {
	idx := r.CorrectIndex
	return exam.Question{
		ID:           r.ID,
		ExamID:       r.ExamID,
		Text:         r.Text,
		Choices:      []string(r.Choices),
		CorrectIndex: &idx,
		Points:       r.Points,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type examRepository struct {
	repository
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *sqlx.DB) *examRepository {
	return &examRepository{repository{db: db}}
}

func (repo examRepository) CreateExam(ctx context.Context, e exam.Exam, exec ...core.DBExecutor) (exam.Exam, error) {
	e.ID = uuid.NewString()
	qb := psql.Insert("exams").Columns("id", "course_id", "title", "created_at").
		Values(e.ID, e.CourseID, e.Title, e.CreatedAt.UTC())
	if _, err := repo.exec(ctx, qb, exec); err != nil {
		return exam.Exam{}, errors.Wrap(err, "inserting exam")
	}
	return e, nil
}

func (repo examRepository) GetExam(ctx context.Context, id string, exec ...core.DBExecutor) (exam.Exam, error) {
	query, args, err := psql.Select("id", "course_id", "title", "created_at").From("exams").
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return exam.Exam{}, errors.Wrap(err, "building exam query")
	}
	var row examRow
	if err = sqlx.GetContext(ctx, repo.getExec(exec), &row, query, args...); err != nil {
		return exam.Exam{}, trapNoRowsErr(err, exam.ErrNotFound, "finding exam")
	}
	return exam.Exam{ID: row.ID, CourseID: row.CourseID, Title: row.Title, CreatedAt: row.CreatedAt.UTC()}, nil
}

func (repo examRepository) CreateQuestion(ctx context.Context, q exam.Question, exec ...core.DBExecutor) (exam.Question, error) {
	q.ID = uuid.NewString()
	idx := 0
	if q.CorrectIndex != nil {
		idx = *q.CorrectIndex
	}
	qb := psql.Insert("exam_questions").
		Columns("id", "exam_id", "text", "choices", "correct_index", "points", "created_at").
		Values(q.ID, q.ExamID, q.Text, pq.StringArray(q.Choices), idx, q.Points, q.CreatedAt.UTC())
	if _, err := repo.exec(ctx, qb, exec); err != nil {
		return exam.Question{}, errors.Wrap(err, "inserting exam question")
	}
	return q, nil
}

func (repo examRepository) QueryQuestions(ctx context.Context, examID string, exec ...core.DBExecutor) ([]exam.Question, error) {
	query, args, err := psql.Select("id", "exam_id", "text", "choices", "correct_index", "points", "created_at").
		From("exam_questions").
		Where(sq.Eq{"exam_id": examID}).
		OrderBy("created_at ASC", "id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building exam questions query")
	}
	var rows []examQuestionRow
	if err = sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying exam questions")
	}
	questions := make([]exam.Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, r.question())
	}
	return questions, nil
}

func (repo examRepository) CreateAttempt(ctx context.Context, a exam.Attempt, exec ...core.DBExecutor) (exam.Attempt, error) {
	a.ID = uuid.NewString()
	answers := make(pq.Int64Array, 0, len(a.Answers))
	for _, ans := range a.Answers {
		answers = append(answers, int64(ans))
	}
	qb := psql.Insert("exam_attempts").Columns("id", "exam_id", "user_id", "answers", "score", "created_at").
		Values(a.ID, a.ExamID, a.UserID, answers, a.Score, a.CreatedAt.UTC())
	if _, err := repo.exec(ctx, qb, exec); err != nil {
		return exam.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return a, nil
}
