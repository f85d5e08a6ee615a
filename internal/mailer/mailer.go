// Package mailer delivers invite links over email via Amazon SES. Email is
// a secondary channel: the QR code path carries the same URI, and a failed
// send never aborts invite issuance.
package mailer

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Mailer sends transactional email via Amazon SES
type Mailer struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
}

// New creates a mailer. With no from address configured it comes up
// disabled and every send is a logged no-op.
func New(ctx context.Context, awsRegion, fromEmail, fromName string) (*Mailer, error) {
	if fromEmail == "" {
		log.Println("Mailer disabled: SES_FROM_EMAIL not configured")
		return &Mailer{enabled: false}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Mailer enabled: from=%s, region=%s", fromEmail, awsRegion)
	return &Mailer{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
	}, nil
}

// IsEnabled returns whether the mailer will actually send
func (m *Mailer) IsEnabled() bool {
	return m.enabled
}

// SendInviteLink emails the invite URI to a prospective family member
func (m *Mailer) SendInviteLink(ctx context.Context, toEmail, familyName, inviteURI string) error {
	if !m.enabled {
		log.Printf("Skipping email send (mailer disabled): invite to %s", toEmail)
		return nil
	}

	subject := fmt.Sprintf("You're invited to join %s on Hearth", familyName)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #d97941; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #d97941; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Family Invitation</h1>
		</div>
		<div class="content">
			<p>You've been invited to join <strong>%s</strong> on Hearth.</p>
			<p>Open this link on a device with Hearth installed:</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Join Family</a>
			</p>
			<p>Or copy and paste this link:</p>
			<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
			<p><strong>This invitation expires in 24 hours and can be used once.</strong></p>
			<p>If you weren't expecting this invitation, you can safely ignore this email.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Hearth. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, familyName, inviteURI, inviteURI)

	textBody := fmt.Sprintf(`You've been invited to join %s on Hearth.

Open this link on a device with Hearth installed:
%s

This invitation expires in 24 hours and can be used once.

If you weren't expecting this invitation, you can safely ignore this email.

---
This is an automated email from Hearth. Please do not reply.
`, familyName, inviteURI)

	return m.send(ctx, toEmail, subject, htmlBody, textBody)
}

func (m *Mailer) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := m.fromEmail
	if m.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}
	log.Printf("Email sent: to=%s, subject=%s", toEmail, subject)
	return nil
}
