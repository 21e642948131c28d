// Package session persists discovery sessions and their transcripts.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/elicitlabs/elicit/internal/prompt"
)

// Sentinel errors checked with errors.Is().
var (
	// ErrNotFound indicates the session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrStatusConflict indicates a status transition lost the
	// compare-and-swap: the stored status no longer matches the
	// expected one.
	ErrStatusConflict = errors.New("session status conflict")
)

// Status is the lifecycle state of a session. Transitions are monotonic:
// questioning → generating → completed, never backwards.
type Status string

const (
	StatusQuestioning Status = "questioning"
	StatusGenerating  Status = "generating"
	StatusCompleted   Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusQuestioning, StatusGenerating, StatusCompleted:
		return true
	}
	return false
}

// CanAdvance reports whether the transition s → next is a legal forward
// step. Only adjacent steps are allowed.
func (s Status) CanAdvance(next Status) bool {
	switch s {
	case StatusQuestioning:
		return next == StatusGenerating
	case StatusGenerating:
		return next == StatusCompleted
	default:
		return false
	}
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is one discovery dialogue.
type Session struct {
	ID          uuid.UUID
	OwnerID     string
	Domain      prompt.Domain
	Status      Status
	FinalBrief  string // empty until synthesis persists it
	FinalOutput []byte // JSONB payload, nil until generation persists it
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message is one transcript entry. Sequence numbers are dense and
// ascending within a session; reads return messages in sequence order.
type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Role      string
	Content   string
	Sequence  int32
	CreatedAt time.Time
}
