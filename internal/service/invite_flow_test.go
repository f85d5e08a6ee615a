package service

import (
	"context"
	"strings"
	"testing"

	"hearth/internal/invite"
	"hearth/internal/keystore"
	"hearth/internal/remote"
	"hearth/internal/vault"
)

func TestInviteFlowIssueReturnsURI(t *testing.T) {
	ctx := context.Background()
	rdb := remote.NewMemory()
	keys := keystore.NewMemoryStore()
	invites := invite.NewService(rdb, keys, vault.NewDocumentCipher(keys), invite.DefaultTTL)

	flow := NewInviteFlow(invites, nil, testScheme)
	uri, err := flow.Issue(ctx, "fam-1", "user-a")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !strings.HasPrefix(uri, testScheme+"://join?") {
		t.Errorf("uri = %q", uri)
	}

	// The URI parses back into a redeemable payload
	if _, err := invite.ParsePayload(uri, testScheme); err != nil {
		t.Errorf("ParsePayload() error = %v", err)
	}
}

func TestInviteFlowSendFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	rdb := remote.NewMemory()
	keys := keystore.NewMemoryStore()
	invites := invite.NewService(rdb, keys, vault.NewDocumentCipher(keys), invite.DefaultTTL)

	// No mailer at all: issuing still succeeds
	flow := NewInviteFlow(invites, nil, testScheme)
	uri, err := flow.IssueAndSend(ctx, "fam-1", "The Okafors", "user-a", "other@example.com")
	if err != nil {
		t.Fatalf("IssueAndSend() error = %v", err)
	}
	if uri == "" {
		t.Error("IssueAndSend() returned empty uri")
	}
}
