package flow

import (
	"errors"
	"fmt"

	"github.com/wolfeidau/blackwatch/internal/client"
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidCode      = errors.New("code must be 6 digits")
	ErrEmailRequired    = errors.New("email is required")
	ErrMissingChallenge = errors.New("server requested MFA without a session key")
)

// InvalidStateError is returned when a step is attempted without the context
// the preceding step carries. No request is sent; Back is where to start over.
type InvalidStateError struct {
	Step    State
	Back    Route
	Missing string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid access to %s: missing %s, start again from %s", e.Step, e.Missing, e.Back)
}

// RedirectError is returned by guards that refuse entry.
type RedirectError struct {
	To     Route
	Reason string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("%s, redirecting to %s", e.Reason, e.To)
}

// StepError wraps a failed server call made by a flow step. Fallback is shown
// when the server did not supply a message.
type StepError struct {
	Op       string
	Fallback string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Message is the text to show the user.
func (e *StepError) Message() string {
	return client.MessageOf(e.Err, e.Fallback)
}

// UserMessage returns the text to show for any error returned by this package.
func UserMessage(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Message()
	}
	return err.Error()
}
