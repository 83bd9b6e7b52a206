package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNoVisitSecret is returned by REST operations before the service has
	// sent a visit frame on the current connection.
	ErrNoVisitSecret = errors.New("no visit secret: not connected")

	// ErrNoLaunchID is returned by instance operations when no instance is
	// starting, running or stopping.
	ErrNoLaunchID = errors.New("no launch id: instance not started")

	// ErrFileTooLarge matches every *SizeLimitError.
	ErrFileTooLarge = errors.New("file too large")

	// ErrAlreadyConnected is returned by Connect while a socket is open.
	ErrAlreadyConnected = errors.New("already connected")
)

// OperationError is a non-success response from the REST surface.
type OperationError struct {
	Op         string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: POST %s: %d %s", e.Op, e.Endpoint, e.StatusCode, e.Body)
}

// SizeLimitError rejects an upload before any request is made.
type SizeLimitError struct {
	Kind  string
	Size  int64
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("%s file must be under %dMB (got %d bytes)", e.Kind, e.Limit>>20, e.Size)
}

func (e *SizeLimitError) Is(target error) bool { return target == ErrFileTooLarge }
