package invite

import (
	"encoding/base64"
	"fmt"
	"net/url"
)

// Payload is the out-of-band half of an invite: the only place the raw
// secret ever appears. It travels as a URI inside a QR code (or an emailed
// link) and must never be written to the remote store.
type Payload struct {
	FamilyID string
	InviteID string
	Secret   []byte
}

// URI encodes the payload as scheme://join?familyId=...&inviteId=...&secret=...
func (p *Payload) URI(scheme string) string {
	q := url.Values{}
	q.Set("familyId", p.FamilyID)
	q.Set("inviteId", p.InviteID)
	q.Set("secret", base64.RawURLEncoding.EncodeToString(p.Secret))
	return fmt.Sprintf("%s://join?%s", scheme, q.Encode())
}

// ParsePayload decodes a scanned invite URI. Any structural problem, such
// as a wrong host, missing field, or undecodable secret, is ErrInvalidPayload.
func ParsePayload(raw, scheme string) (*Payload, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if u.Scheme != scheme || u.Host != "join" {
		return nil, fmt.Errorf("%w: unexpected scheme or host", ErrInvalidPayload)
	}

	q := u.Query()
	familyID := q.Get("familyId")
	inviteID := q.Get("inviteId")
	secretRaw := q.Get("secret")
	if familyID == "" || inviteID == "" || secretRaw == "" {
		return nil, fmt.Errorf("%w: missing field", ErrInvalidPayload)
	}

	secret, err := base64.RawURLEncoding.DecodeString(secretRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable secret", ErrInvalidPayload)
	}

	return &Payload{FamilyID: familyID, InviteID: inviteID, Secret: secret}, nil
}
