package renewer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Element is an opaque handle to a located page element. Drivers resolve it
// back to their own representation through the selector it was found by.
type Element struct {
	Selector string
}

// Driver is the abstract browser-control capability the engine depends on.
// It is deliberately small — navigate, locate, fill, click, wait — so any
// concrete automation backend can be substituted. A Driver represents one
// exclusive session; it is owned by the engine for the run's duration and
// released through Close on every exit path.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// Find locates a single element. A missing element is reported as an
	// error wrapping [ErrElementNotFound].
	Find(ctx context.Context, selector string) (Element, error)
	Fill(ctx context.Context, el Element, text string) error
	Click(ctx context.Context, el Element) error
	// WaitFor blocks until the selector's condition holds or timeout
	// elapses. An elapsed timeout is reported as (false, nil); it is the
	// step's own failure, not an external cancellation.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	Close() error
}

// DriverError reports a failed driver operation. Transient failures
// (network flaps, render races) are retriable; structural failures are not.
type DriverError struct {
	Op        string
	Reason    string
	Transient bool
}

// Error implements the error interface.
func (e *DriverError) Error() string {
	return fmt.Sprintf("driver %s: %s", e.Op, e.Reason)
}

// IsTransient reports whether err is a retriable driver signal: a transient
// [DriverError], [ErrElementNotFound], [ErrWaitTimeout], or a deadline
// expiry. Positive negative signals from the page and structural errors are
// not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var derr *DriverError
	if errors.As(err, &derr) {
		return derr.Transient
	}
	return errors.Is(err, ErrElementNotFound) ||
		errors.Is(err, ErrWaitTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
