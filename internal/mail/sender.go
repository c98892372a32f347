package mail

import (
	"context"
	"fmt"

	"pdfmailer/internal/config"
	"pdfmailer/internal/domain"
)

// New returns the sender selected by cfg.Provider.
func New(ctx context.Context, cfg config.MailConfig) (domain.Sender, error) {
	var (
		sender domain.Sender
		err    error
	)
	switch cfg.Provider {
	case "", "smtp":
		var s *SMTPSender
		s, err = NewSMTPSender(cfg)
		sender = s
	case "postmark":
		var s *PostmarkSender
		s, err = NewPostmarkSender(cfg)
		sender = s
	case "ses":
		var s *SESSender
		s, err = NewSESSender(ctx, cfg)
		sender = s
	default:
		err = fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return sender, nil
}
