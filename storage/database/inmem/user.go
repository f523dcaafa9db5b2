package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, u := range excludedUsers {
		if u.ID == usr.ID {
			return true
		}
	}
	return false
}

func (repo *userRepository) CheckUniqueness(_ context.Context, email, studentNumber string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	numberTaken := false
	for _, usr := range repo.db.users.all() {
		if isExcluded(usr, excludedUsers) {
			continue
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
		if studentNumber != "" && usr.StudentNumber == studentNumber {
			numberTaken = true
		}
	}
	if numberTaken {
		return user.ErrStudentNumberExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = uuid.NewString()
	repo.db.users.insert(usr.ID, usr)
	return usr, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matches(usr user.User, filter *user.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" &&
		!containsFold(usr.Email, filter.Search) &&
		!containsFold(usr.FirstName, filter.Search) &&
		!containsFold(usr.LastName, filter.Search) &&
		!containsFold(usr.StudentNumber, filter.Search) {
		return false
	}
	if len(filter.Roles) > 0 && !usr.HasAnyRole(filter.Roles...) {
		return false
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

// userLess compares two users on an ordering field, it reports ok=false for unknown fields.
func userLess(a, b user.User, field string) (less, equal, ok bool) {
	cmp := func(x, y string) (bool, bool, bool) { return x < y, x == y, true }
	switch strings.ToLower(field) {
	case "email":
		return cmp(a.Email, b.Email)
	case "first_name":
		return cmp(a.FirstName, b.FirstName)
	case "last_name":
		return cmp(a.LastName, b.LastName)
	case "student_number":
		return cmp(a.StudentNumber, b.StudentNumber)
	case "role":
		return cmp(a.Role, b.Role)
	case "is_active":
		return !a.IsActive && b.IsActive, a.IsActive == b.IsActive, true
	case "created_at":
		return a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt), true
	case "updated_at":
		return a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt), true
	case "last_login":
		return a.LastLogin.Before(b.LastLogin), a.LastLogin.Equal(b.LastLogin), true
	}
	return false, false, false
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.db.users.all() {
		if matches(usr, filter) {
			users = append(users, usr)
		}
	}

	if len(ordering) > 0 {
		sort.SliceStable(users, func(i, j int) bool {
			for _, ord := range ordering {
				less, equal, ok := userLess(users[i], users[j], ord.Field)
				if !ok || equal {
					continue
				}
				if ord.Ascending {
					return less
				}
				return !less
			}
			return false
		})
	}
	return users, nil
}

func (repo *userRepository) CountUsers(ctx context.Context, filter *user.QueryFilter, exec ...core.DBExecutor) (int, error) {
	users, err := repo.QueryUsers(ctx, filter, nil, exec...)
	return len(users), err
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users.get(filter.ID); ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users.all() {
		if filter.Email != "" && usr.Email == filter.Email {
			return usr, nil
		}
		if filter.Email == "" && filter.StudentNumber != "" && usr.StudentNumber == filter.StudentNumber {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.users.update(usr.ID, usr) {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		repo.db.users.delete(id)
	}
	return nil
}
