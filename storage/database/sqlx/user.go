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
	"github.com/trezcool/darasa/core/user"
)

var userColumns = []string{
	"id", "email", "first_name", "last_name", "student_number", "role", "is_active",
	"password_hash", "created_at", "updated_at", "last_login",
}

var userOrderings = map[string]string{
	"email":          "email",
	"first_name":     "first_name",
	"last_name":      "last_name",
	"student_number": "student_number",
	"role":           "role",
	"is_active":      "is_active",
	"created_at":     "created_at",
	"updated_at":     "updated_at",
	"last_login":     "last_login",
}

type userRow struct {
	ID            string         `db:"id"`
	Email         string         `db:"email"`
	FirstName     string         `db:"first_name"`
	LastName      string         `db:"last_name"`
	StudentNumber sql.NullString `db:"student_number"`
	Role          string         `db:"role"`
	IsActive      bool           `db:"is_active"`
	PasswordHash  []byte         `db:"password_hash"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	LastLogin     sql.NullTime   `db:"last_login"`
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:            r.ID,
		Email:         r.Email,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		StudentNumber: r.StudentNumber.String,
		Role:          r.Role,
		IsActive:      r.IsActive,
		PasswordHash:  r.PasswordHash,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

func (repo userRepository) values(usr user.User) []interface{} {
	return []interface{}{
		usr.ID,
		usr.Email,
		usr.FirstName,
		usr.LastName,
		sql.NullString{String: usr.StudentNumber, Valid: usr.StudentNumber != ""},
		usr.Role,
		usr.IsActive,
		usr.PasswordHash,
		usr.CreatedAt.UTC(),
		usr.UpdatedAt.UTC(),
		sql.NullTime{Time: usr.LastLogin.UTC(), Valid: !usr.LastLogin.IsZero()},
	}
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{repository{db: db}}
}

func (repo userRepository) CheckUniqueness(ctx context.Context, email, studentNumber string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	match := sq.Or{sq.Eq{"email": email}}
	if studentNumber != "" {
		match = append(match, sq.Eq{"student_number": studentNumber})
	}
	where := sq.And{match}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		where = append(where, sq.NotEq{"id": ids})
	}

	query, args, err := psql.Select("email").From("users").Where(where).ToSql()
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	var emails []string
	if err = sqlx.SelectContext(ctx, repo.getExec(exec), &emails, query, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, e := range emails {
		if e == email {
			return user.ErrEmailExists
		}
	}
	if len(emails) > 0 {
		return user.ErrStudentNumberExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.NewString()
	query, args, err := psql.Insert("users").Columns(userColumns...).Values(repo.values(usr)...).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building insert")
	}
	if _, err = repo.getExec(exec).ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) filter(qb sq.SelectBuilder, filter *user.QueryFilter) sq.SelectBuilder {
	if filter == nil {
		return qb
	}
	// users with Email, FirstName, LastName or StudentNumber matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		qb = qb.Where(sq.Or{
			sq.ILike{"email": val},
			sq.ILike{"first_name": val},
			sq.ILike{"last_name": val},
			sq.ILike{"student_number": val},
		})
	}
	if len(filter.Roles) > 0 {
		qb = qb.Where(sq.Eq{"role": filter.Roles})
	}
	if filter.IsActive != nil {
		qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	if !filter.CreatedFrom.IsZero() {
		qb = qb.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
	}
	if !filter.CreatedTo.IsZero() {
		qb = qb.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
	}
	return qb
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	qb := repo.filter(psql.Select(userColumns...).From("users"), filter).
		OrderBy(orderBy(ordering, userOrderings, "created_at ASC")...)
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}

	var rows []userRow
	if err = sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo userRepository) CountUsers(ctx context.Context, filter *user.QueryFilter, exec ...core.DBExecutor) (int, error) {
	query, args, err := repo.filter(psql.Select("COUNT(*)").From("users"), filter).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building count query")
	}
	var cnt int
	err = sqlx.GetContext(ctx, repo.getExec(exec), &cnt, query, args...)
	return cnt, errors.Wrap(err, "counting users")
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	qb := psql.Select(userColumns...).From("users")
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.Email != "":
		qb = qb.Where(sq.Eq{"email": filter.Email})
	case filter.StudentNumber != "":
		qb = qb.Where(sq.Eq{"student_number": filter.StudentNumber})
	default:
		return user.User{}, user.ErrNotFound
	}

	query, args, err := qb.Limit(1).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user query")
	}
	var row userRow
	if err = sqlx.GetContext(ctx, repo.getExec(exec), &row, query, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.user(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	values := repo.values(usr)
	qb := psql.Update("users").Where(sq.Eq{"id": usr.ID})
	for i, col := range userColumns[1:] {
		qb = qb.Set(col, values[i+1])
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building update")
	}
	res, err := repo.getExec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Delete("users").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building delete")
	}
	_, err = repo.getExec(exec).ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting users")
}
