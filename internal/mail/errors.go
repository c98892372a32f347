package mail

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig wraps every provider configuration error.
	ErrInvalidConfig = errors.New("invalid mail configuration")
	// ErrFailedToSend wraps the provider error of a failed delivery.
	ErrFailedToSend = errors.New("failed to send email")
	// ErrInvalidMessage signals a message that cannot be rendered safely.
	ErrInvalidMessage = errors.New("invalid email message")
	// ErrMissingCredentials is returned at send time when the account
	// credentials of the selected provider are not configured.
	ErrMissingCredentials = errors.New("mail credentials are not configured")
)

func sendFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrFailedToSend, err)
}
