package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Content types
const (
	ContentText  = "TEXT"
	ContentLink  = "LINK"
	ContentFile  = "FILE"
	ContentPDF   = "PDF"
	ContentVideo = "VIDEO"
)

var ContentTypes = []string{ContentText, ContentLink, ContentFile, ContentPDF, ContentVideo}

type Course struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	MaterialKey    *string    `json:"material_key"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	PrerequisiteID *string    `json:"prerequisite_id"`
	CreatedByID    *string    `json:"created_by_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsAvailable returns "" when `now` is within the availability window of the course,
// otherwise the reason why it is not.
func (c Course) IsAvailable(now time.Time) string {
	if c.AvailableFrom != nil && now.Before(*c.AvailableFrom) {
		return "Course not yet available"
	}
	if c.AvailableUntil != nil && now.After(*c.AvailableUntil) {
		return "Course expired"
	}
	return ""
}

type Summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Module struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
	Contents  []Content `json:"contents"`
}

type Content struct {
	ID        string    `json:"id"`
	ModuleID  string    `json:"module_id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Text      *string   `json:"text"`
	URL       *string   `json:"url"`
	ObjectKey *string   `json:"object_key"`
	CreatedAt time.Time `json:"created_at"`
}

// Detail is a Course with its prerequisite and its modules (ordered) with their contents.
type Detail struct {
	Course
	Prerequisite *Summary `json:"prerequisite"`
	Modules      []Module `json:"modules"`
}

// NewCourse contains information needed to create (or fully update) a Course.
type NewCourse struct {
	Title          string     `json:"title" validate:"required"`
	Description    string     `json:"description"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	PrerequisiteID *string    `json:"prerequisite_id"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	if nc.PrerequisiteID != nil && core.CleanString(*nc.PrerequisiteID) == "" {
		nc.PrerequisiteID = nil
	}

	if err := validate.Struct(nc); err != nil {
		return err
	}
	if nc.AvailableFrom != nil && nc.AvailableUntil != nil && nc.AvailableUntil.Before(*nc.AvailableFrom) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "available_until", Error: "available_until must be after available_from",
		})
	}
	return nil
}

type SetMaterial struct {
	MaterialKey *string `json:"material_key"`
}

func (sm *SetMaterial) Clean() {
	if sm.MaterialKey != nil && core.CleanString(*sm.MaterialKey) == "" {
		sm.MaterialKey = nil
	}
}

type NewModule struct {
	Title string `json:"title" validate:"required"`
	Order int    `json:"order" validate:"min=0"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	return validate.Struct(nm)
}

type ModuleOrder struct {
	ID    string `json:"id" validate:"required"`
	Order int    `json:"order" validate:"min=0"`
}

type ReorderModules struct {
	CourseID string        `json:"course_id" validate:"required"`
	Modules  []ModuleOrder `json:"modules" validate:"required,min=1,dive"`
}

func (rm *ReorderModules) Validate(validate *validator.Validate) error {
	return validate.Struct(rm)
}

type NewContent struct {
	Title     string  `json:"title" validate:"required"`
	Type      string  `json:"type" validate:"required,oneof=TEXT LINK FILE PDF VIDEO"`
	Text      *string `json:"text"`
	URL       *string `json:"url" validate:"omitempty,url"`
	ObjectKey *string `json:"object_key"`
}

func (nc *NewContent) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	for _, fld := range []**string{&nc.Text, &nc.URL, &nc.ObjectKey} {
		if *fld != nil && core.CleanString(**fld) == "" {
			*fld = nil
		}
	}

	if err := validate.Struct(nc); err != nil {
		return err
	}
	switch nc.Type {
	case ContentText:
		if nc.Text == nil {
			return core.NewValidationError(nil, core.FieldError{Field: "text", Error: "text is required for TEXT content"})
		}
	case ContentLink, ContentVideo:
		if nc.URL == nil {
			return core.NewValidationError(nil, core.FieldError{Field: "url", Error: "url is required for LINK or VIDEO content"})
		}
	case ContentFile, ContentPDF:
		if nc.ObjectKey == nil {
			return core.NewValidationError(nil, core.FieldError{Field: "object_key", Error: "object_key is required for FILE or PDF content"})
		}
	}
	return nil
}
