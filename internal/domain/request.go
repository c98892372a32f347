package domain

import (
	"strings"
)

// Form field names of the profile request form.
const (
	FieldEmail    = "email"
	FieldBotField = "bot-field"
)

// SendRequest is the single input of one invocation.
type SendRequest struct {
	Email    string
	BotField string
}

// ParseSendRequest decodes an application/x-www-form-urlencoded body the way
// browsers do: pairs are split on '&' only, '+' is a space, and a '%' that
// does not start a valid escape is kept as a literal. The first value of a
// repeated field wins.
func ParseSendRequest(body []byte) SendRequest {
	values := parseForm(string(body))
	return SendRequest{
		Email:    values[FieldEmail],
		BotField: values[FieldBotField],
	}
}

func parseForm(body string) map[string]string {
	values := make(map[string]string)
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		name = decodeFormComponent(name)
		if _, seen := values[name]; seen {
			continue
		}
		values[name] = decodeFormComponent(value)
	}
	return values
}

func decodeFormComponent(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return strings.ToValidUTF8(b.String(), "�")
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// Validate checks the honeypot before the address so spam is reported as
// spam regardless of the email value.
func (r SendRequest) Validate() error {
	if r.BotField != "" {
		return ErrSpamDetected
	}
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}
