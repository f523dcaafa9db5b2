package question

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Sources
const (
	SourcePDF    = "PDF"
	SourceManual = "MANUAL"
)

const (
	DefaultRandomLimit = 10
	MaxRandomLimit     = 50
)

// Question is a multiple-choice question of a course question bank.
// Answer is the index of the right option, hidden from non-admins.
type Question struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	ModuleID  *string   `json:"module_id"`
	Text      string    `json:"text"`
	Options   []string  `json:"options"`
	Answer    *int      `json:"answer,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Public returns q without its answer.
func (q Question) Public() Question {
	q.Answer = nil
	return q
}

type NewQuestion struct {
	Text     string   `json:"text" validate:"notblank_"`
	Options  []string `json:"options" validate:"required,min=2,dive,notblank_"`
	Answer   *int     `json:"answer" validate:"required,min=0"`
	Source   string   `json:"source" validate:"required,oneof=PDF MANUAL"`
	ModuleID *string  `json:"module_id"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	if nq.ModuleID != nil {
		nq.ModuleID = core.StringPtr(core.CleanString(*nq.ModuleID))
	}
	if err := validate.Struct(nq); err != nil {
		return err
	}
	if *nq.Answer >= len(nq.Options) {
		return core.NewValidationError(nil, core.FieldError{Field: "answer", Error: "answer is out of range"})
	}
	return nil
}

type Answer struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     *int   `json:"answer" validate:"required,min=0"`
}

type Submission struct {
	Answers []Answer `json:"answers" validate:"required,dive"`
}

func (s *Submission) Validate(validate *validator.Validate) error {
	return validate.Struct(s)
}

// SubmissionResult is the outcome of a question bank exam.
type SubmissionResult struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
	Total int    `json:"total"`
}
