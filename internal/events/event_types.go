package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginAttempt      EventType = "login_attempt"
	EventAccessDenied      EventType = "access_denied"
	EventRateLimitExceeded EventType = "rate_limit_exceeded"
	EventUserRegistered    EventType = "user_registered"
)

// Actor identifies who triggered an event, when known.
type Actor struct {
	UserID    *string `json:"user_id,omitempty"`
	Email     string  `json:"email,omitempty"`
	IPAddress string  `json:"ip_address,omitempty"`
	UserAgent string  `json:"user_agent,omitempty"`
}

// Event is a security-relevant occurrence emitted by the gateway.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, requestID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginAttemptPayload payload.
type LoginAttemptPayload struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// AccessDeniedPayload payload.
type AccessDeniedPayload struct {
	Path    string `json:"path"`
	Method  string `json:"method"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
}

// RateLimitExceededPayload payload.
type RateLimitExceededPayload struct {
	Key               string `json:"key"`
	Profile           string `json:"profile"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	UserID   string `json:"user_id"`
	CustomID string `json:"custom_id"`
	Role     string `json:"role"`
}
