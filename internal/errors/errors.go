package errors

import "errors"

// Sentinel errors shared by the service and API layers. Services wrap them with
// fmt.Errorf("%w: ...") and the API layer maps them to HTTP statuses with
// errors.Is, so transport concerns never leak into business logic.

var (
	// ErrNotFound signifies that a requested resource could not be located.
	// Mapped to 404 Not Found.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that input data provided by a client failed
	// validation. Mapped to 400 Bad Request.
	ErrValidation = errors.New("validation failed")

	// ErrConflict signifies that an operation conflicts with the current state
	// of a resource. Mapped to 409 Conflict.
	ErrConflict = errors.New("resource conflict")

	// ErrPermission signifies that the caller may not perform the action.
	// Mapped to 403 Forbidden.
	ErrPermission = errors.New("permission denied")

	// ErrStore signifies that the conversation store rejected a read or write.
	// Mapped to 500 Internal Server Error.
	ErrStore = errors.New("conversation store failure")

	// ErrUpstream signifies that the language model provider failed.
	// Mapped to 502 Bad Gateway.
	ErrUpstream = errors.New("language model provider failure")

	// ErrInternal signifies an unexpected error on the server.
	// Mapped to 500 Internal Server Error.
	ErrInternal = errors.New("internal server error")
)
