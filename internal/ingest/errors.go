package ingest

import "errors"

// ErrInvalidConfig indicates invalid pipeline or chunker configuration.
var ErrInvalidConfig = errors.New("invalid configuration")
