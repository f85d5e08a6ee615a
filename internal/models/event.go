package models

import "time"

// Event is a calendar entry for a child (appointment, pickup, activity)
type Event struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"familyId"`
	ChildID   string    `json:"childId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt"`
	Notes     string    `json:"notes,omitempty"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}
