package qdrant

import (
	"errors"
	"fmt"
)

type StatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.Operation, e.Status, e.Body)
}

func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

func asStatusError(err error, target **StatusError) bool {
	return errors.As(err, target)
}
