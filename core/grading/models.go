package grading

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// Grade sources
const (
	GradeManual = "MANUAL"
	GradeOMR    = "OMR"
	GradeExam   = "EXAM"
)

// Exam result sources
const (
	ResultManual = "MANUAL"
	ResultOMR    = "OMR"
	ResultMCQ    = "MCQ"
)

// Grade is the final score (0..100) of a student in a course.
type Grade struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	Score     float64   `json:"score"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// ExamResult is the outcome of the exam of a student in a course.
type ExamResult struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	CourseID        string          `json:"course_id"`
	Score           *int            `json:"score,omitempty"`
	CalculatedScore *float64        `json:"calculated_score"`
	Source          string          `json:"source"`
	RawData         json.RawMessage `json:"raw_data,omitempty"`
	CreatedAt       time.Time       `json:"-"`
	UpdatedAt       time.Time       `json:"-"`
}

type UserSummary struct {
	ID            string  `json:"id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	StudentNumber *string `json:"student_number"`
}

// ResultWithUser is an ExamResult joined with its student.
type ResultWithUser struct {
	ExamResult
	User UserSummary
}

// CourseResult is an exam result as listed to admins.
type CourseResult struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	CourseID        string      `json:"course_id"`
	CalculatedScore *float64    `json:"calculated_score"`
	User            UserSummary `json:"user"`
}

// ExportRow is a flattened OMR exam result.
type ExportRow struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	CourseID        string          `json:"course_id"`
	StudentNumber   *string         `json:"student_number"`
	Name            string          `json:"name"`
	CalculatedScore *float64        `json:"calculated_score"`
	RawData         json.RawMessage `json:"raw_data"`
}

type MyResult struct {
	ID              *string  `json:"id"`
	CalculatedScore *float64 `json:"calculated_score"`
}

type MyGrade struct {
	ID          string  `json:"id"`
	CourseID    string  `json:"course_id"`
	CourseTitle string  `json:"course_title"`
	Score       float64 `json:"score"`
	Source      string  `json:"source"`
}

type Metrics struct {
	TotalCourses          int      `json:"total_courses"`
	TotalStudents         int      `json:"total_students"`
	TotalEnrolledStudents int      `json:"total_enrolled_students"`
	AverageGrade          *float64 `json:"average_grade"`
}

type SetGrade struct {
	UserID string   `json:"user_id" validate:"required"`
	Score  *float64 `json:"score" validate:"required,min=0,max=100"`
	Source string   `json:"source" validate:"omitempty,oneof=MANUAL OMR EXAM"`
}

func (sg *SetGrade) Validate(validate *validator.Validate) error {
	if sg.Source == "" {
		sg.Source = GradeManual
	}
	return validate.Struct(sg)
}

type RecordResult struct {
	UserID          string          `json:"user_id" validate:"required"`
	CalculatedScore *float64        `json:"calculated_score" validate:"omitempty,min=0"`
	RawData         json.RawMessage `json:"raw_data"`
}

func (rr *RecordResult) Validate(validate *validator.Validate) error {
	if string(rr.RawData) == "null" {
		rr.RawData = nil
	}
	return validate.Struct(rr)
}
