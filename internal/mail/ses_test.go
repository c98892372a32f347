package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfmailer/internal/config"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{}, nil
}

func TestSESSender_SendsRawMessage(t *testing.T) {
	api := &fakeSES{}
	sender := NewSESSenderWithAPI(api)

	msg := testMessage()
	require.NoError(t, sender.Send(context.Background(), msg))

	require.NotNil(t, api.input)
	assert.Equal(t, `"Digivation (Pty) Ltd" <sender@example.com>`, *api.input.FromEmailAddress)
	assert.Equal(t, []string{"person@example.com"}, api.input.Destination.ToAddresses)

	_, parts := parseMIME(t, api.input.Content.Raw.Data)
	require.Len(t, parts, 2)
	assert.Equal(t, msg.Attachments[0].Data, parts[1].body)
}

func TestSESSender_APIError(t *testing.T) {
	api := &fakeSES{err: errors.New("MessageRejected: Email address is not verified")}
	err := NewSESSenderWithAPI(api).Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrFailedToSend)
	assert.Contains(t, err.Error(), "not verified")
}

func TestNewSESSender_Validation(t *testing.T) {
	cfg := config.Defaults().Mail
	cfg.Provider = "ses"
	cfg.Username = "sender@example.com"

	cfg.SES.Region = ""
	_, err := NewSESSender(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.SES.Region = "eu-west-1"
	cfg.SES.AccessKeyID = "AKIA"
	_, err = NewSESSender(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.SES.SecretAccessKey = "secret"
	sender, err := NewSESSender(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, sender)
}

func TestSESSender_MissingSenderFailsAtSend(t *testing.T) {
	cfg := config.Defaults().Mail
	cfg.Provider = "ses"
	cfg.SES = config.SESConfig{Region: "eu-west-1", AccessKeyID: "AKIA", SecretAccessKey: "secret"}
	sender, err := NewSESSender(context.Background(), cfg)
	require.NoError(t, err)

	err = sender.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrFailedToSend)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSESSender_APIErrorIsSingleLine(t *testing.T) {
	api := &fakeSES{err: errors.New("MessageRejected: Email address is not verified")}
	err := NewSESSenderWithAPI(api).Send(context.Background(), testMessage())
	assert.Equal(t, "failed to send email: MessageRejected: Email address is not verified", err.Error())
}
