package services

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// OTPMail is one password reset code addressed to a user.
type OTPMail struct {
	To        string
	Name      string
	Code      string
	ExpiresIn time.Duration
}

// Mailer delivers one-time passwords.
type Mailer interface {
	SendOTP(ctx context.Context, mail OTPMail) error
}

// LogMailer writes OTP deliveries to the log instead of sending mail.
type LogMailer struct {
	log *zap.SugaredLogger
}

func NewLogMailer(log *zap.SugaredLogger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendOTP(_ context.Context, mail OTPMail) error {
	m.log.Infow("OTP generated", "to", mail.To, "expiresIn", mail.ExpiresIn)
	m.log.Debugw("OTP value", "to", mail.To, "otp", mail.Code)
	return nil
}

type sesSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends OTP mail through Amazon SES.
type SESMailer struct {
	client sesSender
	from   string
}

// NewSESMailer loads the default AWS credential chain for region.
func NewSESMailer(ctx context.Context, region, from string) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &SESMailer{client: ses.NewFromConfig(cfg), from: from}, nil
}

func (m *SESMailer) SendOTP(ctx context.Context, mail OTPMail) error {
	subject, text, html := otpMessage(mail)

	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{mail.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
				Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send otp email: %w", err)
	}
	return nil
}

func otpMessage(mail OTPMail) (subject, text, html string) {
	minutes := int(mail.ExpiresIn.Minutes())
	subject = "Your password reset code"
	text = fmt.Sprintf("Hi %s,\n\nYour one-time password is %s. It expires in %d minutes.\n", mail.Name, mail.Code, minutes)
	html = fmt.Sprintf("<p>Hi %s,</p><p>Your one-time password is <strong>%s</strong>. It expires in %d minutes.</p>",
		template.HTMLEscapeString(mail.Name), mail.Code, minutes)
	return subject, text, html
}
