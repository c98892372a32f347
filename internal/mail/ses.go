package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"pdfmailer/internal/config"
	"pdfmailer/internal/domain"
)

// SendEmailAPI is the part of the SES v2 client used by SESSender.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers raw MIME messages through Amazon SES.
type SESSender struct {
	api     SendEmailAPI
	credErr error
	now     func() time.Time
}

// NewSESSender builds an SES client for cfg.SES.Region. Static credentials are
// used when both keys are set, the default AWS chain otherwise.
func NewSESSender(ctx context.Context, cfg config.MailConfig) (*SESSender, error) {
	if cfg.SES.Region == "" {
		return nil, fmt.Errorf("%w: ses region is required", ErrInvalidConfig)
	}
	if (cfg.SES.AccessKeyID == "") != (cfg.SES.SecretAccessKey == "") {
		return nil, fmt.Errorf("%w: ses access key id and secret must be set together", ErrInvalidConfig)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.SES.Region)}
	if cfg.SES.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.SES.AccessKeyID, cfg.SES.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	s := NewSESSenderWithAPI(sesv2.NewFromConfig(awsCfg))
	s.credErr = MissingCredentials(cfg)
	return s, nil
}

// NewSESSenderWithAPI wraps an existing SES client.
func NewSESSenderWithAPI(api SendEmailAPI) *SESSender {
	return &SESSender{api: api, now: time.Now}
}

// Send implements domain.Sender.
func (s *SESSender) Send(ctx context.Context, msg domain.Message) error {
	if s.credErr != nil {
		return sendFailure(s.credErr)
	}
	raw, err := BuildMIME(msg, s.now())
	if err != nil {
		return err
	}

	_, err = s.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromHeader(msg)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content:          &types.EmailContent{Raw: &types.RawMessage{Data: raw}},
	})
	if err != nil {
		return sendFailure(err)
	}
	return nil
}
