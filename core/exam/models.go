package exam

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type Exam struct {
	ID        string     `json:"id"`
	CourseID  string     `json:"course_id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	Questions []Question `json:"questions"`
}

// Question is a positional question of an Exam.
// CorrectIndex is nil once hidden from candidates.
type Question struct {
	ID           string    `json:"id"`
	ExamID       string    `json:"exam_id"`
	Text         string    `json:"text"`
	Choices      []string  `json:"choices"`
	CorrectIndex *int      `json:"correct_index,omitempty"`
	Points       int       `json:"points"`
	CreatedAt    time.Time `json:"-"`
}

type Attempt struct {
	ID        string    `json:"id"`
	ExamID    string    `json:"exam_id"`
	UserID    string    `json:"user_id"`
	Answers   []int     `json:"answers"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

type AttemptResult struct {
	ID       string `json:"id"`
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
}

type NewExam struct {
	Title string `json:"title" validate:"notblank_"`
}

func (ne *NewExam) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	return validate.Struct(ne)
}

type NewQuestion struct {
	Text         string   `json:"text" validate:"notblank_"`
	Choices      []string `json:"choices" validate:"required,min=2,dive,notblank_"`
	CorrectIndex *int     `json:"correct_index" validate:"required,min=0"`
	Points       *int     `json:"points" validate:"omitempty,min=1"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	if err := validate.Struct(nq); err != nil {
		return err
	}
	if *nq.CorrectIndex >= len(nq.Choices) {
		return core.NewValidationError(nil, core.FieldError{Field: "correct_index", Error: "correct_index is out of range"})
	}
	return nil
}

type NewAttempt struct {
	Answers []int `json:"answers" validate:"required,dive,min=0"`
}

func (na *NewAttempt) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

// Score returns the points earned by `answers` and the maximum score of `questions`.
// answers[i] answers questions[i]; missing answers earn nothing.
func Score(questions []Question, answers []int) (score, maxScore int) {
	for i, q := range questions {
		maxScore += q.Points
		if i < len(answers) && q.CorrectIndex != nil && answers[i] == *q.CorrectIndex {
			score += q.Points
		}
	}
	return score, maxScore
}
