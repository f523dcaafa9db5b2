package omr

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"time"

	"github.com/pkg/errors"
)

// Mode tells a Scanner what kind of sheet it reads.
type Mode string

const (
	ModeAnswer Mode = "answer"
	ModeGrade  Mode = "grade"
)

const (
	WarnUnclearAnswer   = "Unclear answer"
	WarnStudentMissing  = "Student number missing"
	WarnNotEnrolled     = "Student not enrolled"
	WarnSampleNoStudent = "Student not found or not enrolled"

	// DefaultTotal is the number of questions assumed when the answer key is empty.
	DefaultTotal = 20
)

// Options are the answer bubbles of a question row, left to right.
var Options = []string{"A", "B", "C", "D", "E"}

// Region is a bubble grid, positioned with fractions of the image size.
type Region struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
	Rows int     `json:"rows"`
	Cols int     `json:"cols"`
}

func (r Region) validate(name string, maxRows, maxCols int) error {
	switch {
	case r.Rows < 1 || r.Cols < 1:
		return errors.Errorf("%s: rows and cols must be positive", name)
	case maxRows > 0 && r.Rows > maxRows:
		return errors.Errorf("%s: at most %d rows", name, maxRows)
	case maxCols > 0 && r.Cols > maxCols:
		return errors.Errorf("%s: at most %d cols", name, maxCols)
	case r.X < 0 || r.Y < 0 || r.W <= 0 || r.H <= 0 || r.X+r.W > 1 || r.Y+r.H > 1:
		return errors.Errorf("%s: region must fit in the image", name)
	}
	return nil
}

// Layout locates the bubble grids of an OMR sheet.
// The student number grid has one column per digit and one row per value (0-9);
// the answers grid has one row per question and one column per option.
type Layout struct {
	Regions struct {
		StudentNumber Region `json:"student_number"`
		Answers       Region `json:"answers"`
	} `json:"regions"`
}

func (l Layout) Validate() error {
	if err := l.Regions.StudentNumber.validate("student_number", 10, 0); err != nil {
		return err
	}
	return l.Regions.Answers.validate("answers", 0, len(Options))
}

func ParseLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, errors.Wrap(err, "decoding layout")
	}
	if err := l.Validate(); err != nil {
		return Layout{}, errors.Wrap(err, "invalid layout")
	}
	return l, nil
}

func LoadLayout(fsys fs.FS, name string) (Layout, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Layout{}, errors.Wrap(err, fmt.Sprintf("reading layout %s", name))
	}
	return ParseLayout(data)
}

// ScanResult is what a Scanner reads on a sheet.
type ScanResult struct {
	Answers       []string `json:"answers"`
	StudentNumber string   `json:"student_number"`
	Total         int      `json:"total"`
	Warnings      []string `json:"warnings"`
	DebugImage    string   `json:"debug_image,omitempty"`
}

type AnswerKey struct {
	CourseID  string
	Answers   []string
	UpdatedAt time.Time
}

type AnswerKeyResult struct {
	OK         bool     `json:"ok"`
	Answers    []string `json:"answers"`
	Total      int      `json:"total"`
	Warnings   []string `json:"warnings"`
	DebugImage string   `json:"debug_image,omitempty"`
}

type GradeResult struct {
	OK            bool     `json:"ok"`
	StudentNumber string   `json:"student_number"`
	Answers       []string `json:"answers"`
	Correct       int      `json:"correct"`
	Total         int      `json:"total"`
	Score         int      `json:"score"`
	UserID        *string  `json:"user_id"`
	Warnings      []string `json:"warnings"`
	DebugImage    string   `json:"debug_image,omitempty"`
}

// Request asks to process the sheet stored under ObjectKey for a course.
type Request struct {
	CourseID  string `json:"course_id" validate:"required"`
	ObjectKey string `json:"object_key" validate:"required"`
}

// CourseRequest targets a course only.
type CourseRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}
