package diagnoses

import "errors"

var (
	ErrNotFound         = errors.New("diagnosis not found")
	ErrInvalidToken     = errors.New("invalid diagnosis token")
	ErrTokenExpired     = errors.New("diagnosis token expired")
	ErrAlreadyCompleted = errors.New("diagnosis already completed")
	ErrNotCompleted     = errors.New("diagnosis not completed")
	ErrLeadNotFound     = errors.New("lead not found")
	ErrInvalidType      = errors.New("invalid diagnosis type")
)
