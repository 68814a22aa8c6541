package application

import "errors"

var (
	// ErrSettingsLocked is returned when session settings are mutated after the first join.
	ErrSettingsLocked = errors.New("application: session settings are locked")
	// ErrSessionLocked is returned when delegation is attempted after the session stopped being editable.
	ErrSessionLocked = errors.New("application: session is locked")
	// ErrMaxAttemptsExceeded is returned when a guest exhausts the join attempt limit.
	ErrMaxAttemptsExceeded = errors.New("application: maximum join attempts exceeded")
	// ErrDuplicateRoomName is returned when a breakout room name collides case-insensitively.
	ErrDuplicateRoomName = errors.New("application: breakout room name already in use")
	// ErrEmptySelection is returned when a breakout room is created without participants.
	ErrEmptySelection = errors.New("application: participant selection is empty")
	// ErrEmptyBody is returned when a mediator message body is blank after trimming.
	ErrEmptyBody = errors.New("application: message body is empty")
	// ErrAuthorityRequired is returned when the acting user lacks the host permission for an operation.
	ErrAuthorityRequired = errors.New("application: host authority required")
	// ErrInvalidTransition is returned when a summon status would regress.
	ErrInvalidTransition = errors.New("application: invalid status transition")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrTokenExpired is returned when a presented rejoin token is past its validity window.
	ErrTokenExpired = errors.New("application: rejoin token expired")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
