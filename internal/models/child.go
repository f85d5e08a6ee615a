package models

import "time"

// Child profile within a family. FamilyID may be transiently empty on records
// inherited from an older schema; the backfill pass assigns it when it can do
// so unambiguously.
type Child struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"familyId"`
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birthDate"`
	// Deleted only rides the remote record. Children are removed from the
	// local store outright; the marker is how peers observe the removal.
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}
