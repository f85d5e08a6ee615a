package service

import (
	"context"
	"fmt"
	"log"

	"hearth/internal/invite"
	"hearth/internal/mailer"
)

// InviteFlow issues invites and hands the URI to whatever channel carries
// it to the other parent: the QR code on screen, and optionally email.
type InviteFlow struct {
	invites   *invite.Service
	mail      *mailer.Mailer
	uriScheme string
}

// NewInviteFlow creates the invite orchestrator. mail may be nil.
func NewInviteFlow(invites *invite.Service, mail *mailer.Mailer, uriScheme string) *InviteFlow {
	return &InviteFlow{invites: invites, mail: mail, uriScheme: uriScheme}
}

// Issue creates a single-use invite and returns its URI for QR display
func (f *InviteFlow) Issue(ctx context.Context, familyID, userID string) (string, error) {
	payload, err := f.invites.Issue(ctx, familyID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to issue invite: %w", err)
	}
	return payload.URI(f.uriScheme), nil
}

// IssueAndSend issues an invite and emails the link. The email is best
// effort: the URI is returned either way, the QR path still works.
func (f *InviteFlow) IssueAndSend(ctx context.Context, familyID, familyName, userID, toEmail string) (string, error) {
	uri, err := f.Issue(ctx, familyID, userID)
	if err != nil {
		return "", err
	}
	if f.mail != nil && toEmail != "" {
		if err := f.mail.SendInviteLink(ctx, toEmail, familyName, uri); err != nil {
			log.Printf("Failed to email invite link to %s: %v", toEmail, err)
		}
	}
	return uri, nil
}
