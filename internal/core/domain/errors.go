package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
	ErrNoFactIntent     = errors.New("no fact intent matched")
	ErrFactNotFound     = errors.New("fact not found")
	ErrIndexUnavailable = errors.New("index unavailable")
	ErrIngestInProgress = errors.New("ingestion in progress")
	ErrRunNotFound      = errors.New("ingest run not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
