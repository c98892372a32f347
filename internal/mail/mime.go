package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/xid"

	"pdfmailer/internal/domain"
)

const lineLength = 76

func validateMessage(msg domain.Message) error {
	if msg.From == "" {
		return fmt.Errorf("%w: sender address is empty", ErrInvalidMessage)
	}
	if msg.To == "" {
		return fmt.Errorf("%w: recipient address is empty", ErrInvalidMessage)
	}
	headers := []struct{ name, value string }{
		{"sender name", msg.FromName},
		{"sender address", msg.From},
		{"recipient address", msg.To},
		{"subject", msg.Subject},
	}
	for _, h := range headers {
		if strings.ContainsAny(h.value, "\r\n") {
			return fmt.Errorf("%w: %s contains a line break", ErrInvalidMessage, h.name)
		}
	}
	return nil
}

// fromHeader renders the sender as `"Display Name" <address>`.
func fromHeader(msg domain.Message) string {
	return (&mail.Address{Name: msg.FromName, Address: msg.From}).String()
}

// BuildMIME renders msg as a multipart/mixed RFC 5322 message: one HTML part
// followed by the base64 encoded attachments.
func BuildMIME(msg domain.Message, now time.Time) ([]byte, error) {
	if err := validateMessage(msg); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	host := "localhost"
	if at := strings.LastIndex(msg.From, "@"); at >= 0 && at < len(msg.From)-1 {
		host = msg.From[at+1:]
	}

	headers := []struct{ key, value string }{
		{"From", fromHeader(msg)},
		{"To", msg.To},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", xid.New().String(), host)},
		{"MIME-Version", "1.0"},
		{"Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", mw.Boundary())},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.key, h.value)
	}
	buf.WriteString("\r\n")

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, err
	}
	qp := quotedprintable.NewWriter(htmlPart)
	if _, err := qp.Write([]byte(msg.HTMLBody)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {mime.FormatMediaType(contentType, map[string]string{"name": a.Filename})},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64Lines(part, a.Data); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBase64Lines(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := min(lineLength, len(encoded))
		if _, err := w.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
