package mail

import (
	"fmt"
	"strings"

	"pdfmailer/internal/config"
)

// MissingCredentials reports the credentials cfg.Provider needs but does not
// have. Senders are still constructed without them; every Send then fails
// with ErrMissingCredentials.
func MissingCredentials(cfg config.MailConfig) error {
	var missing []string
	if cfg.Username == "" {
		missing = append(missing, "EMAIL_USER")
	}
	switch cfg.Provider {
	case "", "smtp":
		if cfg.Password == "" {
			missing = append(missing, "EMAIL_PASS")
		}
	case "postmark":
		if cfg.Postmark.ServerToken == "" && cfg.Password == "" {
			missing = append(missing, "POSTMARK_SERVER_TOKEN or EMAIL_PASS")
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s not set", ErrMissingCredentials, strings.Join(missing, ", "))
}
