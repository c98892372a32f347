package domain

import "errors"

var (
	// ErrMethodNotAllowed signals a request that is not a POST.
	ErrMethodNotAllowed = errors.New("method not allowed")
	// ErrSpamDetected signals a filled honeypot field.
	ErrSpamDetected = errors.New("spam detected")
	// ErrInvalidEmail signals a missing address or one without '@'.
	ErrInvalidEmail = errors.New("valid email required")
)

// Cause tells which step of a send failed.
type Cause string

const (
	CauseRender   Cause = "render"
	CauseMail     Cause = "mail"
	CauseInternal Cause = "internal"
)

// Failure wraps a downstream error with the step that produced it. Its
// message is the wrapped error's message, unchanged.
type Failure struct {
	Cause Cause
	Err   error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Cause) + " failure"
	}
	return f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// RenderFailure marks err as a rendering failure.
func RenderFailure(err error) error { return &Failure{Cause: CauseRender, Err: err} }

// MailFailure marks err as a mail delivery failure.
func MailFailure(err error) error { return &Failure{Cause: CauseMail, Err: err} }

// CauseOf returns the failure cause carried by err, or CauseInternal.
func CauseOf(err error) Cause {
	var f *Failure
	if errors.As(err, &f) {
		return f.Cause
	}
	return CauseInternal
}
