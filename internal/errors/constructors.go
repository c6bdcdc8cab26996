package errors

import "fmt"

// InvalidSession creates an error for a restore target that is missing or empty
func InvalidSession(reason string) *Error {
	return New(ErrCodeInvalidSession, fmt.Sprintf("invalid session: %s", reason))
}

// NotFound creates an error for a missing group, window or session
func NotFound(kind, id string) *Error {
	return New(ErrCodeNotFound, fmt.Sprintf("%s '%s' not found", kind, id)).
		WithDetail("kind", kind).
		WithDetail("id", id)
}

// DuplicateGroup creates an error for a group id that already exists in a window
func DuplicateGroup(windowID int, groupID string) *Error {
	return New(ErrCodeDuplicateGroup, fmt.Sprintf("group '%s' already exists in window %d", groupID, windowID)).
		WithDetail("windowId", windowID).
		WithDetail("groupId", groupID)
}

// InvalidParameters creates an error for missing or malformed request fields
func InvalidParameters(reason string) *Error {
	return New(ErrCodeInvalidParameters, fmt.Sprintf("invalid parameters: %s", reason))
}

// HostFailure wraps a rejected host API call
func HostFailure(op string, err error) *Error {
	return Wrap(err, ErrCodeTransientHostFailure, fmt.Sprintf("host call failed: %s", op)).
		WithDetail("op", op)
}
