package services

import "errors"

var (
	// ErrInvalidRequest wraps problems with the caller's input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited is returned when a user has used up the daily report allowance.
	ErrRateLimited = errors.New("daily report limit reached")
	// ErrNoDocuments is returned when an entity has no uploaded documents to analyse.
	ErrNoDocuments = errors.New("no documents found for entity")
)
