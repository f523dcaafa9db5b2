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
	"github.com/trezcool/darasa/core/course"
)

var (
	courseColumns = []string{
		"id", "title", "description", "material_key", "available_from", "available_until",
		"prerequisite_id", "created_by_id", "created_at",
	}
	moduleColumns  = []string{"id", "course_id", "title", "position", "created_at"}
	contentColumns = []string{"id", "module_id", "title", "type", "body", "url", "object_key", "created_at"}
)

type courseRow struct {
	ID             string         `db:"id"`
	Title          string         `db:"title"`
	Description    string         `db:"description"`
	MaterialKey    sql.NullString `db:"material_key"`
	AvailableFrom  sql.NullTime   `db:"available_from"`
	AvailableUntil sql.NullTime   `db:"available_until"`
	PrerequisiteID sql.NullString `db:"prerequisite_id"`
	CreatedByID    sql.NullString `db:"created_by_id"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		MaterialKey:    stringPtr(r.MaterialKey),
		AvailableFrom:  timePtr(r.AvailableFrom),
		AvailableUntil: timePtr(r.AvailableUntil),
		PrerequisiteID: stringPtr(r.PrerequisiteID),
		CreatedByID:    stringPtr(r.CreatedByID),
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

type moduleRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Title     string    `db:"title"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
}

func (r moduleRow) module() course.Module {
	return course.Module{ID: r.ID, CourseID: r.CourseID, Title: r.Title, Order: r.Position, CreatedAt: r.CreatedAt.UTC()}
}

type contentRow struct {
	ID        string         `db:"id"`
	ModuleID  string         `db:"module_id"`
	Title     string         `db:"title"`
	Type      string         `db:"type"`
	Body      sql.NullString `db:"body"`
	URL       sql.NullString `db:"url"`
	ObjectKey sql.NullString `db:"object_key"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r contentRow) content() course.Content {
	return course.Content{
		ID:        r.ID,
		ModuleID:  r.ModuleID,
		Title:     r.Title,
		Type:      r.Type,
		Text:      stringPtr(r.Body),
		URL:       stringPtr(r.URL),
		ObjectKey: stringPtr(r.ObjectKey),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{repository{db: db}}
}

func (repo courseRepository) courseValues(c course.Course) []interface{} {
	return []interface{}{
		c.ID,
		c.Title,
		c.Description,
		nullString(c.MaterialKey),
		nullTime(c.AvailableFrom),
		nullTime(c.AvailableUntil),
		nullString(c.PrerequisiteID),
		nullString(c.CreatedByID),
		c.CreatedAt.UTC(),
	}
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	c.ID = uuid.NewString()
	qb := psql.Insert("courses").Columns(courseColumns...).Values(repo.courseValues(c)...)
	if _, err := repo.exec(ctx, qb, exec); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	values := repo.courseValues(c)
	qb := psql.Update("courses").Where(sq.Eq{"id": c.ID})
	for i, col := range courseColumns[1:] {
		qb = qb.Set(col, values[i+1])
	}
	res, err := repo.exec(ctx, qb, exec)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	query, args, err := psql.Select(courseColumns...).From("courses").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building course query")
	}
	var row courseRow
	if err = sqlx.GetContext(ctx, repo.getExec(exec), &row, query, args...); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return row.course(), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]course.Course, error) {
	query, args, err := psql.Select(courseColumns...).From("courses").OrderBy("created_at DESC", "id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building courses query")
	}
	var rows []courseRow
	if err = sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (repo courseRepository) CountCourses(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	var cnt int
	err := sqlx.GetContext(ctx, repo.getExec(exec), &cnt, "SELECT COUNT(*) FROM courses")
	return cnt, errors.Wrap(err, "counting courses")
}

func (repo courseRepository) CreateModule(ctx context.Context, m course.Module, exec ...core.DBExecutor) (course.Module, error) {
	m.ID = uuid.NewString()
	qb := psql.Insert("modules").Columns(moduleColumns...).
		Values(m.ID, m.CourseID, m.Title, m.Order, m.CreatedAt.UTC())
	if _, err := repo.exec(ctx, qb, exec); err != nil {
		return course.Module{}, errors.Wrap(err, "inserting module")
	}
	return m, nil
}

func (repo courseRepository) GetModule(ctx context.Context, id string, exec ...core.DBExecutor) (course.Module, error) {
	query, args, err := psql.Select(moduleColumns...).From("modules").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return course.Module{}, errors.Wrap(err, "building module query")
	}
	var row moduleRow
	if err = sqlx.GetContext(ctx, repo.getExec(exec), &row, query, args...); err != nil {
		return course.Module{}, trapNoRowsErr(err, course.ErrModuleNotFound, "finding module")
	}
	return row.module(), nil
}

func (repo courseRepository) queryModules(ctx context.Context, where sq.Sqlizer, exec []core.DBExecutor) ([]course.Module, error) {
	query, args, err := psql.Select(moduleColumns...).From("modules").Where(where).
		OrderBy("position ASC", "created_at ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building modules query")
	}
	var rows []moduleRow
	if err = sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	modules := make([]course.Module, 0, len(rows))
	for _, r := range rows {
		modules = append(modules, r.module())
	}
	return modules, nil
}

func (repo courseRepository) QueryModules(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Module, error) {
	return repo.queryModules(ctx, sq.Eq{"course_id": courseID}, exec)
}

func (repo courseRepository) QueryModulesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]course.Module, error) {
	if len(ids) == 0 {
		return []course.Module{}, nil
	}
	return repo.queryModules(ctx, sq.Eq{"id": ids}, exec)
}

func (repo courseRepository) SetModuleOrder(ctx context.Context, id string, order int, exec ...core.DBExecutor) error {
	res, err := repo.exec(ctx, psql.Update("modules").Set("position", order).Where(sq.Eq{"id": id}), exec)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrModuleNotFound
	}
	return nil
}

func (repo courseRepository) CreateContent(ctx context.Context, c course.Content, exec ...core.DBExecutor) (course.Content, error) {
	c.ID = uuid.NewString()
	qb := psql.Insert("contents").Columns(contentColumns...).Values(
		c.ID, c.ModuleID, c.Title, c.Type, nullString(c.Text), nullString(c.URL), nullString(c.ObjectKey), c.CreatedAt.UTC(),
	)
	if _, err := repo.exec(ctx, qb, exec); err != nil {
		return course.Content{}, errors.Wrap(err, "inserting content")
	}
	return c, nil
}

func (repo courseRepository) QueryContents(ctx context.Context, moduleIDs []string, exec ...core.DBExecutor) ([]course.Content, error) {
	if len(moduleIDs) == 0 {
		return []course.Content{}, nil
	}
	query, args, err := psql.Select(contentColumns...).From("contents").
		Where(sq.Eq{"module_id": moduleIDs}).OrderBy("created_at ASC", "id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building contents query")
	}
	var rows []contentRow
	if err = sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}
	contents := make([]course.Content, 0, len(rows))
	for _, r := range rows {
		contents = append(contents, r.content())
	}
	return contents, nil
}
