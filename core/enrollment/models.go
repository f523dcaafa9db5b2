package enrollment

import "time"

// Statuses
const (
	StatusPending  = "PENDING"
	StatusEnrolled = "ENROLLED"
	StatusRejected = "REJECTED"

	// StatusNotEnrolled is reported for users without any enrollment in a course, it is never stored.
	StatusNotEnrolled = "NOT_ENROLLED"
)

var Statuses = []string{StatusPending, StatusEnrolled, StatusRejected}

func IsValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

type Enrollment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State is the enrollment status of a User in a Course.
type State struct {
	ID      *string `json:"id,omitempty"`
	Status  string  `json:"status"`
	Warning *string `json:"warning,omitempty"`
}

// Student is an enrollment row as seen by admins, with the course grade of the student when present.
type Student struct {
	ID            string   `json:"id"`
	UserID        string   `json:"user_id"`
	FirstName     string   `json:"first_name"`
	LastName      string   `json:"last_name"`
	StudentNumber *string  `json:"student_number"`
	Status        string   `json:"status"`
	Score         *float64 `json:"score"`
	Source        *string  `json:"source"`
}

// GetFilter selects a single Enrollment, either by ID or by (UserID, CourseID).
type GetFilter struct {
	ID       string
	UserID   string
	CourseID string
}
