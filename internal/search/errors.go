package search

import "errors"

var (
	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid search configuration")

	// ErrEmptyQuery is returned when Search is called with an empty query.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidMode is returned for an unknown search mode.
	ErrInvalidMode = errors.New("invalid search mode")
)
