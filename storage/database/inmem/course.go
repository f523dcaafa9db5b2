package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c.ID = uuid.NewString()
	repo.db.courses.insert(c.ID, c)
	return c, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.courses.update(c.ID, c) {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.courses.get(id); ok {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	all := repo.db.courses.all()
	courses := make([]course.Course, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		courses = append(courses, all[i])
	}
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) CountCourses(_ context.Context, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.courses.count(), nil
}

func (repo *courseRepository) CreateModule(_ context.Context, m course.Module, _ ...core.DBExecutor) (course.Module, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m.ID = uuid.NewString()
	m.Contents = nil
	repo.db.modules.insert(m.ID, m)
	return m, nil
}

func (repo *courseRepository) GetModule(_ context.Context, id string, _ ...core.DBExecutor) (course.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.modules.get(id); ok {
		return m, nil
	}
	return course.Module{}, course.ErrModuleNotFound
}

func sortModules(modules []course.Module) {
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].Order < modules[j].Order })
}

func (repo *courseRepository) QueryModules(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	modules := make([]course.Module, 0)
	for _, m := range repo.db.modules.all() {
		if m.CourseID == courseID {
			modules = append(modules, m)
		}
	}
	sortModules(modules)
	return modules, nil
}

func (repo *courseRepository) QueryModulesByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]course.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	modules := make([]course.Module, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if m, ok := repo.db.modules.get(id); ok && !seen[id] {
			seen[id] = true
			modules = append(modules, m)
		}
	}
	sortModules(modules)
	return modules, nil
}

func (repo *courseRepository) SetModuleOrder(_ context.Context, id string, order int, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m, ok := repo.db.modules.get(id)
	if !ok {
		return course.ErrModuleNotFound
	}
	m.Order = order
	repo.db.modules.update(id, m)
	return nil
}

func (repo *courseRepository) CreateContent(_ context.Context, c course.Content, _ ...core.DBExecutor) (course.Content, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c.ID = uuid.NewString()
	repo.db.contents.insert(c.ID, c)
	return c, nil
}

func (repo *courseRepository) QueryContents(_ context.Context, moduleIDs []string, _ ...core.DBExecutor) ([]course.Content, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := make(map[string]bool, len(moduleIDs))
	for _, id := range moduleIDs {
		wanted[id] = true
	}
	contents := make([]course.Content, 0)
	for _, c := range repo.db.contents.all() {
		if wanted[c.ModuleID] {
			contents = append(contents, c)
		}
	}
	sort.SliceStable(contents, func(i, j int) bool { return contents[i].CreatedAt.Before(contents[j].CreatedAt) })
	return contents, nil
}
