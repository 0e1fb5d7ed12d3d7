package llm

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrUnavailable means the backend could not be reached at all.
	ErrUnavailable = errors.New("llm backend unavailable")

	// ErrTimeout means the call exceeded its deadline.
	ErrTimeout = errors.New("llm request timed out")

	// ErrInvalidOutput means the model answered but not in the expected shape.
	ErrInvalidOutput = errors.New("invalid llm output format")

	// ErrRetryExhausted means every attempt failed.
	ErrRetryExhausted = errors.New("llm retry attempts exhausted")

	// ErrNotConfigured is returned by providers built without credentials.
	ErrNotConfigured = errors.New("llm provider not configured")
)

// Classify maps transport failures onto the sentinels above so callers can
// branch with errors.Is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return errors.Join(ErrTimeout, err)
		}
		return errors.Join(ErrUnavailable, err)
	}
	return err
}
