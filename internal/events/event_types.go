package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventTokenRefreshed EventType = "token_refreshed"
	EventTokenRotated   EventType = "token_rotated"
	EventLoggedOut      EventType = "logged_out"
)

// Event represents an auth lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LoginFailedPayload payload. Subject on the event itself stays empty for
// unknown accounts so audit logs cannot confirm enumeration guesses.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// TokenRefreshedPayload payload.
type TokenRefreshedPayload struct {
	Rotated bool `json:"rotated"`
}
