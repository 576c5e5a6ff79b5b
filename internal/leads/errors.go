package leads

import "errors"

var (
	ErrNotFound   = errors.New("lead not found")
	ErrValidation = errors.New("invalid lead")
)
