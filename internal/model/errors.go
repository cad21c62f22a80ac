package model

import "errors"

var (
	// Input errors
	ErrValidation   = errors.New("validation failed")
	ErrInvalidInput = errors.New("invalid input")

	// Principal errors
	ErrRegistrationFailed = errors.New("registration failed")
	ErrNotFound           = errors.New("record not found")
	ErrUnknownStatus      = errors.New("unknown principal status")

	// Authentication errors
	ErrUnauthorized = errors.New("unauthorized")

	// OAuth errors
	ErrClientNotFound = errors.New("oauth client not found")
	ErrGrant          = errors.New("token grant failed")
	ErrInvalidGrant   = errors.New("invalid grant")
	ErrInvalidClient  = errors.New("invalid client")

	// Storage errors
	ErrPersistence = errors.New("persistence failure")
)
