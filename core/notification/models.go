package notification

import "time"

type Kind string

const (
	KindSyllabusSubmitted Kind = "syllabus_submitted"
	KindSyllabusReviewed  Kind = "syllabus_reviewed"
	KindCommentAdded      Kind = "comment_added"
)

type Notification struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	// RefID points at the resource the notice concerns (syllabus, comment).
	RefID     string    `json:"ref_id"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"` // UTC
}
