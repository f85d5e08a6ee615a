package models

import "time"

// Invite is the remote-only record bridging two devices during a join. It
// holds the AEAD-wrapped family master key and a hash of the one-time secret;
// the secret itself only ever travels out-of-band. Never persisted locally.
type Invite struct {
	ID         string     `json:"id"`
	FamilyID   string     `json:"familyId"`
	CreatedBy  string     `json:"createdBy"`
	SecretHash string     `json:"secretHash"` // sha256, base64
	Salt       string     `json:"salt"`       // base64
	Cipher     string     `json:"cipher"`     // base64, wrapped family key
	Nonce      string     `json:"nonce"`      // base64
	Tag        string     `json:"tag"`        // base64
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	UsedAt     *time.Time `json:"usedAt,omitempty"`
	UsedBy     string     `json:"usedBy,omitempty"`
}

// IsExpired reports whether the invite's wall-clock expiry has passed
func (i *Invite) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsUsed reports whether the invite has already been redeemed
func (i *Invite) IsUsed() bool {
	return i.UsedAt != nil
}
