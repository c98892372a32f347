package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"pdfmailer/internal/config"
	"pdfmailer/internal/domain"
)

// SMTPSender delivers mail over an authenticated SMTP session. A new
// connection is opened for every message.
type SMTPSender struct {
	host     string
	port     int
	tlsMode  string
	username string
	password string
	credErr  error
	now      func() time.Time
}

// NewSMTPSender validates the server settings of cfg and returns an SMTP
// backed sender. Missing credentials surface from Send.
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	if cfg.SMTP.Host == "" {
		return nil, fmt.Errorf("%w: smtp host is required", ErrInvalidConfig)
	}
	if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
		return nil, fmt.Errorf("%w: smtp port must be between 1 and 65535", ErrInvalidConfig)
	}
	switch cfg.SMTP.TLSMode {
	case "tls", "starttls", "plain":
	default:
		return nil, fmt.Errorf("%w: smtp tls mode must be tls, starttls or plain", ErrInvalidConfig)
	}
	return &SMTPSender{
		host:     cfg.SMTP.Host,
		port:     cfg.SMTP.Port,
		tlsMode:  cfg.SMTP.TLSMode,
		username: cfg.Username,
		password: cfg.Password,
		credErr:  MissingCredentials(cfg),
		now:      time.Now,
	}, nil
}

// Send implements domain.Sender.
func (s *SMTPSender) Send(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return sendFailure(err)
	}
	if s.credErr != nil {
		return sendFailure(s.credErr)
	}

	data, err := BuildMIME(msg, s.now())
	if err != nil {
		return err
	}

	if err := s.deliver(ctx, msg.From, msg.To, data); err != nil {
		return sendFailure(err)
	}
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, from, to string, data []byte) error {
	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if s.tlsMode == "starttls" {
		if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if ok, _ := client.Extension("AUTH"); !ok {
		return errors.New("smtp server does not support authentication")
	}
	if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// Some servers drop the connection right after DATA; the message is
	// already accepted at this point.
	_ = client.Quit()
	return nil
}

func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if s.tlsMode == "tls" {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: s.host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to connect to SMTP server with TLS: %w", err)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return client, nil
}
