package httpapi

import "errors"

var (
	// ErrMissingSecret is returned when the X-ROADMAP-AI-SECRET header is
	// absent from a request that requires it.
	ErrMissingSecret = errors.New("httpapi: missing shared secret header")

	// ErrInvalidSecret is returned when the shared secret header does not
	// match the configured value.
	ErrInvalidSecret = errors.New("httpapi: invalid shared secret")

	// ErrInvalidBearerToken is returned when the roadmapctl bearer-token
	// mode is enabled and the presented JWT fails validation.
	ErrInvalidBearerToken = errors.New("httpapi: invalid bearer token")

	// ErrInvalidPayload is returned when a request body fails to decode or
	// fails basic shape validation (spec.md §4.15).
	ErrInvalidPayload = errors.New("httpapi: invalid request payload")

	// ErrActionRunNotFound is returned when GET /actions/run/{run_id}
	// references an unknown run (spec.md §4.15: "404 on unknown").
	ErrActionRunNotFound = errors.New("httpapi: action run not found")

	// ErrUnknownAction is returned when POST /actions/run names an action
	// with no registered handler.
	ErrUnknownAction = errors.New("httpapi: unknown action")
)
