package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	config "github.com/Keoroanthony/go-dairydelight/configs"
)

// Email is pre-rendered content for one recipient.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type EmailSender interface {
	SendEmail(ctx context.Context, msg Email) error
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESSender struct {
	client sesAPI
	sender string
}

func NewSESSender(ctx context.Context, cfg config.EmailConfig) (*SESSender, error) {
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("sender email address is not configured in environment variables")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	return &SESSender{client: ses.NewFromConfig(awsCfg), sender: cfg.SenderEmail}, nil
}

func content(s string) *types.Content {
	return &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(s)}
}

func (s *SESSender) SendEmail(ctx context.Context, msg Email) error {
	if msg.To == "" {
		return fmt.Errorf("recipient email address is empty")
	}

	body := &types.Body{Html: content(msg.HTML)}
	if msg.Text != "" {
		body.Text = content(msg.Text)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: content(msg.Subject),
			Body:    body,
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.InfoContext(ctx, "email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}
