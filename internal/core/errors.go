package core

import "errors"

// Failure taxonomy shared across the API and the background pipeline.
// NotFound, Forbidden and Validation are terminal for an invocation; anything
// else is an upstream failure retried only through queue redelivery.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)
