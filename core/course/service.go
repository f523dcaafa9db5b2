package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound             = core.NotFound("Course not found")
	ErrModuleNotFound       = core.NotFound("Module not found")
	ErrInvalidPrerequisite  = core.Invalid("Invalid prerequisite course")
	ErrDuplicateModuleOrder = core.Invalid("Duplicate module order values")
	ErrInvalidModuleList    = core.Invalid("Invalid module list")
	ErrModulesNotInCourse   = core.Invalid("Modules do not belong to course")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		// QueryCourses returns courses, newest first.
		QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]Course, error)
		CountCourses(ctx context.Context, exec ...core.DBExecutor) (int, error)

		CreateModule(ctx context.Context, m Module, exec ...core.DBExecutor) (Module, error)
		GetModule(ctx context.Context, id string, exec ...core.DBExecutor) (Module, error)
		// QueryModules returns the modules of a course by ascending order, without contents.
		QueryModules(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Module, error)
		QueryModulesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Module, error)
		SetModuleOrder(ctx context.Context, id string, order int, exec ...core.DBExecutor) error

		CreateContent(ctx context.Context, c Content, exec ...core.DBExecutor) (Content, error)
		// QueryContents returns the contents of the given modules by ascending creation time.
		QueryContents(ctx context.Context, moduleIDs []string, exec ...core.DBExecutor) ([]Content, error)
	}

	// QuestionBank copies the question bank of a course into another course.
	// moduleIDs maps the source module IDs to the target ones.
	QuestionBank interface {
		CopyQuestions(ctx context.Context, fromCourseID, toCourseID string, moduleIDs map[string]string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, creatorID string, nc NewCourse) (Course, error)
		Update(ctx context.Context, id string, nc NewCourse) (Course, error)
		List(ctx context.Context) ([]Course, error)
		Get(ctx context.Context, id string) (Course, error)
		GetDetail(ctx context.Context, id string) (Detail, error)
		Count(ctx context.Context) (int, error)
		SetMaterial(ctx context.Context, id string, materialKey *string) (Course, error)
		CreateModule(ctx context.Context, courseID string, nm NewModule) (Module, error)
		ListModules(ctx context.Context, courseID string) ([]Module, error)
		GetModule(ctx context.Context, id string) (Module, error)
		ReorderModules(ctx context.Context, rm ReorderModules) error
		CreateContent(ctx context.Context, moduleID string, nc NewContent) (Content, error)
		Clone(ctx context.Context, id, creatorID string) (Summary, error)
	}

	service struct {
		repo Repository
		bank QuestionBank
		tx   core.Transactor
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, bank QuestionBank, tx core.Transactor) Service {
	return &service{repo: repo, bank: bank, tx: tx}
}

func (svc *service) checkPrerequisite(ctx context.Context, courseID string, prereqID *string) error {
	if prereqID == nil {
		return nil
	}
	if *prereqID == courseID {
		return ErrInvalidPrerequisite
	}
	if _, err := svc.repo.GetCourse(ctx, *prereqID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrInvalidPrerequisite
		}
		return errors.Wrap(err, "getting prerequisite course")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, creatorID string, nc NewCourse) (Course, error) {
	if err := svc.checkPrerequisite(ctx, "", nc.PrerequisiteID); err != nil {
		return Course{}, err
	}
	c := Course{
		Title:          nc.Title,
		Description:    nc.Description,
		AvailableFrom:  utcPtr(nc.AvailableFrom),
		AvailableUntil: utcPtr(nc.AvailableUntil),
		PrerequisiteID: nc.PrerequisiteID,
		CreatedByID:    core.StringPtr(creatorID),
		CreatedAt:      time.Now().UTC(),
	}
	c, err := svc.repo.CreateCourse(ctx, c)
	return c, errors.Wrap(err, "creating course")
}

func (svc *service) Update(ctx context.Context, id string, nc NewCourse) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = svc.checkPrerequisite(ctx, id, nc.PrerequisiteID); err != nil {
		return Course{}, err
	}
	c.Title = nc.Title
	c.Description = nc.Description
	c.AvailableFrom = utcPtr(nc.AvailableFrom)
	c.AvailableUntil = utcPtr(nc.AvailableUntil)
	c.PrerequisiteID = nc.PrerequisiteID

	c, err = svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "updating course")
}

func (svc *service) List(ctx context.Context) ([]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx)
	return courses, errors.Wrap(err, "querying courses")
}

func (svc *service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) GetDetail(ctx context.Context, id string) (Detail, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{Course: c}

	if c.PrerequisiteID != nil {
		prereq, err := svc.repo.GetCourse(ctx, *c.PrerequisiteID)
		if err != nil && errors.Cause(err) != ErrNotFound {
			return Detail{}, errors.Wrap(err, "getting prerequisite course")
		}
		if err == nil {
			detail.Prerequisite = &Summary{ID: prereq.ID, Title: prereq.Title}
		}
	}

	if detail.Modules, err = svc.ListModules(ctx, id); err != nil {
		return Detail{}, err
	}
	return detail, nil
}

func (svc *service) Count(ctx context.Context) (int, error) {
	n, err := svc.repo.CountCourses(ctx)
	return n, errors.Wrap(err, "counting courses")
}

func (svc *service) SetMaterial(ctx context.Context, id string, materialKey *string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	c.MaterialKey = materialKey
	c, err = svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "updating course")
}

func (svc *service) CreateModule(ctx context.Context, courseID string, nm NewModule) (Module, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Module{}, err
	}
	m := Module{
		CourseID:  courseID,
		Title:     nm.Title,
		Order:     nm.Order,
		CreatedAt: time.Now().UTC(),
	}
	m, err := svc.repo.CreateModule(ctx, m)
	if err != nil {
		return Module{}, errors.Wrap(err, "creating module")
	}
	m.Contents = []Content{}
	return m, nil
}

// ListModules returns the modules by order, each with its contents by creation time.
func (svc *service) ListModules(ctx context.Context, courseID string) ([]Module, error) {
	modules, err := svc.repo.QueryModules(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	if len(modules) == 0 {
		return []Module{}, nil
	}

	ids := make([]string, 0, len(modules))
	idx := make(map[string]int, len(modules))
	for i, m := range modules {
		ids = append(ids, m.ID)
		idx[m.ID] = i
		modules[i].Contents = []Content{}
	}
	contents, err := svc.repo.QueryContents(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}
	for _, content := range contents {
		i := idx[content.ModuleID]
		modules[i].Contents = append(modules[i].Contents, content)
	}
	return modules, nil
}

func (svc *service) GetModule(ctx context.Context, id string) (Module, error) {
	return svc.repo.GetModule(ctx, id)
}

// ReorderModules sets the order of every listed module; all of them are updated or none.
func (svc *service) ReorderModules(ctx context.Context, rm ReorderModules) error {
	ids := make([]string, 0, len(rm.Modules))
	orders := make(map[int]struct{}, len(rm.Modules))
	for _, item := range rm.Modules {
		ids = append(ids, item.ID)
		orders[item.Order] = struct{}{}
	}
	if len(orders) != len(rm.Modules) {
		return ErrDuplicateModuleOrder
	}

	existing, err := svc.repo.QueryModulesByID(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	if len(existing) != len(rm.Modules) {
		return ErrInvalidModuleList
	}
	for _, m := range existing {
		if m.CourseID != rm.CourseID {
			return ErrModulesNotInCourse
		}
	}

	return svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		for _, item := range rm.Modules {
			if err := svc.repo.SetModuleOrder(ctx, item.ID, item.Order, exec); err != nil {
				return errors.Wrap(err, "setting module order")
			}
		}
		return nil
	})
}

func (svc *service) CreateContent(ctx context.Context, moduleID string, nc NewContent) (Content, error) {
	if _, err := svc.repo.GetModule(ctx, moduleID); err != nil {
		return Content{}, err
	}
	c := Content{
		ModuleID:  moduleID,
		Title:     nc.Title,
		Type:      nc.Type,
		Text:      nc.Text,
		URL:       nc.URL,
		ObjectKey: nc.ObjectKey,
		CreatedAt: time.Now().UTC(),
	}
	c, err := svc.repo.CreateContent(ctx, c)
	return c, errors.Wrap(err, "creating content")
}

// Clone copies a course with its modules, contents and question bank; the copy belongs to creatorID.
func (svc *service) Clone(ctx context.Context, id, creatorID string) (Summary, error) {
	src, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	modules, err := svc.ListModules(ctx, id)
	if err != nil {
		return Summary{}, err
	}

	var clone Course
	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		now := time.Now().UTC()
		clone, err = svc.repo.CreateCourse(ctx, Course{
			Title:          src.Title + " Copy",
			Description:    src.Description,
			MaterialKey:    src.MaterialKey,
			AvailableFrom:  src.AvailableFrom,
			AvailableUntil: src.AvailableUntil,
			CreatedByID:    core.StringPtr(creatorID),
			CreatedAt:      now,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "creating course")
		}

		moduleIDs := make(map[string]string, len(modules))
		for _, m := range modules {
			cm, err := svc.repo.CreateModule(ctx, Module{
				CourseID:  clone.ID,
				Title:     m.Title,
				Order:     m.Order,
				CreatedAt: now,
			}, exec)
			if err != nil {
				return errors.Wrap(err, "creating module")
			}
			moduleIDs[m.ID] = cm.ID

			for _, content := range m.Contents {
				content.ID = ""
				content.ModuleID = cm.ID
				if _, err := svc.repo.CreateContent(ctx, content, exec); err != nil {
					return errors.Wrap(err, "creating content")
				}
			}
		}

		return errors.Wrap(svc.bank.CopyQuestions(ctx, src.ID, clone.ID, moduleIDs, exec), "copying questions")
	})
	if err != nil {
		return Summary{}, err
	}
	return Summary{ID: clone.ID, Title: clone.Title}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
