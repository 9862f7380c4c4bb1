package activitylog

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"resume-pipeline/internal/shared/telemetry"
)

// Action names what happened to the logged object.
type Action string

const (
	ActionUpload  Action = "upload"
	ActionParse   Action = "parse"
	ActionAnalyze Action = "analyze"
	ActionError   Action = "error"
)

// ObjectResume is the object type recorded for resume activity.
const ObjectResume = "resume"

// Entry is a single activity log row.
type Entry struct {
	UserID     *int64
	ObjectType string
	ObjectID   string
	Action     Action
	Message    string
	Timestamp  time.Time
}

// ForResume builds an entry about a resume owned by ownerID.
func ForResume(ownerID int64, resumeID string, action Action, message string) Entry {
	owner := ownerID
	return Entry{
		UserID:     &owner,
		ObjectType: ObjectResume,
		ObjectID:   resumeID,
		Action:     action,
		Message:    message,
	}
}

// Recorder persists activity entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Record writes e through r and logs, rather than returns, any failure.
func Record(ctx context.Context, r Recorder, e Entry) {
	if r == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := r.Record(ctx, e); err != nil {
		telemetry.Error("activity.record_failed", map[string]any{
			"object_type": e.ObjectType,
			"object_id":   e.ObjectID,
			"action":      string(e.Action),
			"error":       err,
		})
	}
}

// SQLRecorder writes entries to the analytics_logentry table on the secondary store.
// Both supported dialects (mysql, sqlite) accept ? placeholders.
type SQLRecorder struct {
	DB *sql.DB
}

// Record inserts one entry.
func (r *SQLRecorder) Record(ctx context.Context, e Entry) error {
	const query = `
INSERT INTO analytics_logentry (
    user_id,
    object_type,
    object_id,
    action,
    message,
    timestamp
) VALUES (?, ?, ?, ?, ?, ?)`

	var userID sql.NullInt64
	if e.UserID != nil {
		userID = sql.NullInt64{Int64: *e.UserID, Valid: true}
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, query, userID, e.ObjectType, e.ObjectID, string(e.Action), e.Message, ts)
	return err
}

// TelemetryRecorder writes entries to the structured log only.
type TelemetryRecorder struct{}

// Record logs the entry.
func (TelemetryRecorder) Record(_ context.Context, e Entry) error {
	fields := map[string]any{
		"object_type": e.ObjectType,
		"object_id":   e.ObjectID,
		"action":      string(e.Action),
		"message":     e.Message,
	}
	if e.UserID != nil {
		fields["user_id"] = *e.UserID
	}
	if e.Action == ActionError {
		telemetry.Warn("activity.recorded", fields)
		return nil
	}
	telemetry.Info("activity.recorded", fields)
	return nil
}

// MemoryRecorder keeps entries in memory.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Record appends the entry.
func (r *MemoryRecorder) Record(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

// Entries returns a copy of the recorded entries.
func (r *MemoryRecorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Filter returns the recorded entries with the given action.
func (r *MemoryRecorder) Filter(action Action) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

var (
	_ Recorder = (*SQLRecorder)(nil)
	_ Recorder = TelemetryRecorder{}
	_ Recorder = (*MemoryRecorder)(nil)
)
