// Package invite implements the key-distribution protocol: a family's
// first device wraps the master key under a key derived from a one-time
// secret, publishes only the wrapped blob remotely, and hands the secret to
// the second device out-of-band. Redemption is transactional, so an invite
// is consumed at most once no matter how many devices race for it.
package invite

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"hearth/internal/cryptoutil"
	"hearth/internal/keystore"
	"hearth/internal/models"
	"hearth/internal/remote"
	"hearth/internal/vault"
)

var (
	// ErrInvalidPayload covers unparseable URIs and invites that don't exist
	ErrInvalidPayload = errors.New("invalid invite")

	// ErrExpired means the invite's wall-clock TTL has passed
	ErrExpired = errors.New("invite expired")

	// ErrAlreadyUsed means another device redeemed the invite first
	ErrAlreadyUsed = errors.New("invite already used")

	// ErrInvalidSecret means the scanned secret does not match the invite
	ErrInvalidSecret = errors.New("invite secret does not match")
)

// DefaultTTL is the invite lifetime when none is configured
const DefaultTTL = 24 * time.Hour

// Service issues and redeems invites
type Service struct {
	db     remote.Database
	keys   keystore.Store
	cipher *vault.DocumentCipher
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates an invite service. ttl <= 0 selects DefaultTTL.
func NewService(db remote.Database, keys keystore.Store, cipher *vault.DocumentCipher, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{db: db, keys: keys, cipher: cipher, ttl: ttl, now: time.Now}
}

// Issue creates an invite for the family and returns the out-of-band
// payload. The remote store receives only the secret's hash and the wrapped
// key; the secret itself exists solely in the returned payload.
func (s *Service) Issue(ctx context.Context, familyID, userID string) (*Payload, error) {
	familyKey, err := s.cipher.EnsureFamilyKey(familyID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain family key: %w", err)
	}

	secret, err := cryptoutil.RandomBytes(cryptoutil.KeySize)
	if err != nil {
		return nil, err
	}
	salt, err := cryptoutil.RandomBytes(cryptoutil.SaltSize)
	if err != nil {
		return nil, err
	}
	inviteID := uuid.New().String()

	wrapKey, err := cryptoutil.DeriveKey(secret, salt, familyID)
	if err != nil {
		return nil, err
	}
	box, err := cryptoutil.Seal(familyKey, wrapKey)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &models.Invite{
		ID:         inviteID,
		FamilyID:   familyID,
		CreatedBy:  userID,
		SecretHash: cryptoutil.SHA256Base64(secret),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Cipher:     base64.StdEncoding.EncodeToString(box.Ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(box.Nonce),
		Tag:        base64.StdEncoding.EncodeToString(box.Tag),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}

	stores := remote.For(s.db, familyID)
	if err := stores.Invites.Upsert(ctx, inviteID, record); err != nil {
		return nil, fmt.Errorf("failed to publish invite: %w", err)
	}

	return &Payload{FamilyID: familyID, InviteID: inviteID, Secret: secret}, nil
}

// Redeem validates and consumes the invite, unwraps the family master key,
// and stores it for (family, user). The validate-then-mark-used step runs in
// one remote transaction: two devices redeeming concurrently get exactly one
// success and one ErrAlreadyUsed.
func (s *Service) Redeem(ctx context.Context, payload *Payload, userID string) error {
	var record models.Invite

	err := s.db.RunTransaction(ctx, payload.FamilyID, func(tx remote.Tx) error {
		doc, err := tx.Get(remote.ColInvites, payload.InviteID)
		if errors.Is(err, remote.ErrNotFound) {
			return fmt.Errorf("%w: no such invite", ErrInvalidPayload)
		}
		if err != nil {
			return fmt.Errorf("failed to read invite: %w", err)
		}
		if err := json.Unmarshal(doc, &record); err != nil {
			return fmt.Errorf("%w: undecodable invite record", ErrInvalidPayload)
		}

		now := s.now().UTC()
		if record.IsExpired(now) {
			return ErrExpired
		}
		if record.IsUsed() {
			return ErrAlreadyUsed
		}
		if cryptoutil.SHA256Base64(payload.Secret) != record.SecretHash {
			return ErrInvalidSecret
		}

		record.UsedAt = &now
		record.UsedBy = userID
		updated, err := json.Marshal(&record)
		if err != nil {
			return fmt.Errorf("failed to encode invite record: %w", err)
		}
		return tx.Set(remote.ColInvites, payload.InviteID, updated)
	})
	if err != nil {
		return err
	}

	// The invite is consumed; unwrapping happens outside the transaction.
	familyKey, err := s.unwrap(&record, payload.Secret)
	if err != nil {
		return err
	}
	if err := s.keys.Save(familyKey, payload.FamilyID, userID); err != nil {
		return fmt.Errorf("failed to store family key: %w", err)
	}

	// Cleanup is best-effort: a consumed invite left behind only expires.
	stores := remote.For(s.db, payload.FamilyID)
	if err := stores.Invites.HardDelete(ctx, payload.InviteID); err != nil {
		log.Printf("Failed to delete consumed invite %s: %v", payload.InviteID, err)
	}

	return nil
}

func (s *Service) unwrap(record *models.Invite, secret []byte) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(record.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable salt", ErrInvalidPayload)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(record.Cipher)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable cipher", ErrInvalidPayload)
	}
	nonce, err := base64.StdEncoding.DecodeString(record.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable nonce", ErrInvalidPayload)
	}
	tag, err := base64.StdEncoding.DecodeString(record.Tag)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable tag", ErrInvalidPayload)
	}

	wrapKey, err := cryptoutil.DeriveKey(secret, salt, record.FamilyID)
	if err != nil {
		return nil, err
	}
	return cryptoutil.Open(cryptoutil.SealedBox{Ciphertext: ciphertext, Nonce: nonce, Tag: tag}, wrapKey)
}
