package errors

import "fmt"

type DatabaseError struct {
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Resource   string
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Identifier)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// ConflictError reports a state transition that is not allowed in the
// current state, e.g. starting a session while one is already active.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// InsufficientError reports an operation blocked by a depleted resource
// (no mining time left, nothing pending to collect, balance too low).
type InsufficientError struct {
	Resource string
	Message  string
}

func (e *InsufficientError) Error() string {
	return e.Message
}

// LimitExceededError reports a daily cap that has already been reached.
type LimitExceededError struct {
	Limit   string
	Message string
}

func (e *LimitExceededError) Error() string {
	return e.Message
}

type CacheError struct {
	Operation string
	Err       error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error during %s: %v", e.Operation, e.Err)
}

type WebSocketError struct {
	Operation string
	Err       error
}

func (e *WebSocketError) Error() string {
	return fmt.Sprintf("WebSocket error during %s: %v", e.Operation, e.Err)
}
