package resumes

import (
	"errors"
	"time"

	"resume-pipeline/internal/extract"
)

// Status is the processing state of a resume.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Visibility controls who besides the owner may read a resume.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

var (
	// ErrNotFound is returned when a resume does not exist.
	ErrNotFound = errors.New("resume not found")
	// ErrInvalidTransition is returned when a status change would move backwards.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Resume is the relational record of an uploaded resume.
type Resume struct {
	ID               string
	OwnerID          int64
	Title            string
	FileKey          string
	Format           extract.Format
	OriginalFilename string
	Visibility       Visibility
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// status moves forward only; failed and completed resumes may restart at processing.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusProcessing},
	StatusCompleted:  {StatusProcessing},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether from may move to to. Repeating the current
// status is always allowed.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// allowedFrom lists the statuses that may move to to, in a stable order.
func allowedFrom(to Status) []Status {
	var out []Status
	for _, from := range []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// ParseVisibility maps input onto a Visibility, defaulting to private.
func ParseVisibility(raw string) (Visibility, error) {
	switch Visibility(raw) {
	case "", VisibilityPrivate:
		return VisibilityPrivate, nil
	case VisibilityPublic:
		return VisibilityPublic, nil
	default:
		return "", errors.New("visibility must be private or public")
	}
}
