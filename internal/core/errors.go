package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBanned           = "banned"
	ErrCodePasswordRequired = "password_required"
	ErrCodeForbidden        = "forbidden"
	ErrCodeImmutableRoom    = "immutable_room"
	ErrCodeNotFound         = "not_found"
	ErrCodeSelfTarget       = "self_target"
	ErrCodeRoomExists       = "room_exists"
	ErrCodeRoomNotFound     = "room_not_found"
	ErrCodeNotInRoom        = "not_in_room"
	ErrCodeNotLoggedIn      = "not_logged_in"
	ErrCodeBadRequest       = "bad_request"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
)

var (
	ErrBanned           = coreError(ErrCodeBanned, "display name is banned")
	ErrPasswordRequired = coreError(ErrCodePasswordRequired, "room password required")
	ErrForbidden        = coreError(ErrCodeForbidden, "forbidden")
	ErrImmutableRoom    = coreError(ErrCodeImmutableRoom, "default rooms cannot be renamed")
	ErrNotFound         = coreError(ErrCodeNotFound, "target not found")
	ErrSelfTarget       = coreError(ErrCodeSelfTarget, "cannot target yourself")
	ErrRoomExists       = coreError(ErrCodeRoomExists, "room already exists")
	ErrRoomNotFound     = coreError(ErrCodeRoomNotFound, "room not found")
	ErrNotInRoom        = coreError(ErrCodeNotInRoom, "not in a room")
	ErrNotLoggedIn      = coreError(ErrCodeNotLoggedIn, "login required")
	ErrBadRequest       = coreError(ErrCodeBadRequest, "bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is matches any CoreError carrying the same code.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	return ok && t.Code == e.Code
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

func badRequest(msg string) *CoreError {
	return coreError(ErrCodeBadRequest, msg)
}

// AsCoreError converts err into a CoreError, falling back to internal_error.
func AsCoreError(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return coreError(ErrCodeInternal, "internal error")
}
