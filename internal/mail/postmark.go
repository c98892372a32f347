package mail

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mrz1836/postmark"

	"pdfmailer/internal/config"
	"pdfmailer/internal/domain"
)

// PostmarkSender delivers mail through the Postmark transactional API.
type PostmarkSender struct {
	client  *postmark.Client
	credErr error
}

// NewPostmarkSender uses mail.postmark.server_token, falling back to
// EMAIL_PASS so the two-secret deployment keeps working unchanged.
func NewPostmarkSender(cfg config.MailConfig) (*PostmarkSender, error) {
	token := cfg.Postmark.ServerToken
	if token == "" {
		token = cfg.Password
	}

	client := postmark.NewClient(token, cfg.Postmark.AccountToken)
	if cfg.Postmark.BaseURL != "" {
		client.BaseURL = cfg.Postmark.BaseURL
	}
	return &PostmarkSender{client: client, credErr: MissingCredentials(cfg)}, nil
}

// Send implements domain.Sender.
func (p *PostmarkSender) Send(ctx context.Context, msg domain.Message) error {
	if p.credErr != nil {
		return sendFailure(p.credErr)
	}
	if err := validateMessage(msg); err != nil {
		return err
	}

	attachments := make([]postmark.Attachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, postmark.Attachment{
			Name:        a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Data),
			ContentType: a.ContentType,
		})
	}

	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:        fromHeader(msg),
		To:          msg.To,
		Subject:     msg.Subject,
		HTMLBody:    msg.HTMLBody,
		Tag:         "company-profile",
		Attachments: attachments,
	})
	if err != nil {
		return sendFailure(err)
	}
	if resp.ErrorCode > 0 {
		return sendFailure(fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
