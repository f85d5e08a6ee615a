package models

import "time"

// Family is the root of the shared dataset. Every other entity carries its id
// as a foreign key; the "family tree" is reconstructed by query, never by
// maintained object references.
type Family struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	OwnerID       string    `json:"ownerId"`
	HeroImagePath string    `json:"heroImagePath,omitempty"`
	HeroImageMIME string    `json:"heroImageMime,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	UpdatedBy     string    `json:"updatedBy"`
}

// FamilyMember is the local materialized view of remote membership
type FamilyMember struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"familyId"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"` // 'owner' or 'parent'
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Deleted   bool      `json:"deleted"`
	JoinedAt  time.Time `json:"joinedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

// IsOwner reports whether the member holds the owner role
func (m *FamilyMember) IsOwner() bool {
	return m.Role == "owner"
}
