package scanner

import (
	"errors"
	"fmt"
)

// ErrSessionActive is returned by Start while a previous session has not been released.
var ErrSessionActive = errors.New("scan session already active")

// ErrStreamClosed is returned by Next after the stream was closed.
var ErrStreamClosed = errors.New("stream closed")

// Kind classifies terminal session failures
type Kind string

const (
	KindNoCameraDevice Kind = "no_camera_device"
	KindStreamFailure  Kind = "stream_failure"
)

// Error is delivered to onError when a session fails
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNoCameraDevice:
		return "No camera devices found"
	default:
		if e.Err != nil {
			return fmt.Sprintf("camera stream failed: %v", e.Err)
		}
		return "camera stream failed"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind carried by err, or "" when err is not a session error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
