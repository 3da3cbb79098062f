// Package geolocation coordinates "track my location" sessions against an
// asynchronous position provider.
package geolocation

import (
	"errors"
	"time"

	"github.com/olablt/gio-locate/tiles"
)

// Position is a single fix reported by a Provider.
type Position struct {
	Coordinate tiles.LatLng
	// Accuracy is the estimated horizontal accuracy in meters, 0 if unknown.
	Accuracy  float64
	Timestamp time.Time
}

// Provider is the device or network location capability. Callbacks may run
// on any goroutine and may run before the call that triggered them returns.
type Provider interface {
	// GetCurrentPosition reports at most one of onSuccess or onError.
	GetCurrentPosition(onSuccess func(Position), onError func(error))
	// WatchPosition reports positions and errors until cancel is called.
	WatchPosition(onSuccess func(Position), onError func(error)) (cancel func())
}

// ErrorCode classifies provider failures.
type ErrorCode int

const (
	CodeUnknown ErrorCode = iota
	CodePermissionDenied
	CodePositionUnavailable
	CodeTimeout
)

func (c ErrorCode) String() string {
	switch c {
	case CodePermissionDenied:
		return "PERMISSION_DENIED"
	case CodePositionUnavailable:
		return "POSITION_UNAVAILABLE"
	case CodeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN_ERROR"
	}
}

// PositionError is a failure reported by a Provider.
type PositionError struct {
	Code    ErrorCode
	Message string
}

func NewPositionError(code ErrorCode, message string) *PositionError {
	return &PositionError{Code: code, Message: message}
}

func (e *PositionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.String()
}

// Is matches any PositionError with the same code, so the package sentinels
// work with errors.Is.
func (e *PositionError) Is(target error) bool {
	var pe *PositionError
	if !errors.As(target, &pe) {
		return false
	}
	return pe.Code == e.Code
}

var (
	ErrPermissionDenied    = &PositionError{Code: CodePermissionDenied}
	ErrPositionUnavailable = &PositionError{Code: CodePositionUnavailable}

	// ErrPermissionTimeout marks EventPermissionTimeout: the user has not
	// answered the location prompt within the session timeout.
	ErrPermissionTimeout = errors.New("geolocation: permission prompt unanswered")
)
