// errors.go defines the failure taxonomy used inside the notifier.

package notifier

import (
	"errors"
	"fmt"
)

// ErrInvalidAccessToken is reported when the configured access token is not a
// 32 character hexadecimal string. A notifier built with such a token is disabled.
var ErrInvalidAccessToken = errors.New("invalid access token")

// CaptureError wraps failures while capturing context or building a payload.
type CaptureError struct {
	// Stage names the step that failed (person, request, build, panic).
	Stage string
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Stage, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// DeliveryError wraps sender failures. The batch it describes has been dropped.
type DeliveryError struct {
	Handler HandlerMode
	Count   int
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %d payload(s) via %s: %v", e.Count, e.Handler, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
