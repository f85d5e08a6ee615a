package models

import "time"

// Routine is a recurring task for a child (brush teeth, pack school bag)
type Routine struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"familyId"`
	ChildID   string    `json:"childId"`
	Title     string    `json:"title"`
	Active    bool      `json:"active"`
	SortOrder int       `json:"sortOrder"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

// RoutineCheck is an append-only completion event. There is no update or
// delete: two caregivers checking the same routine on the same day produce
// two rows instead of a merge conflict.
type RoutineCheck struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"familyId"`
	ChildID   string    `json:"childId"`
	RoutineID string    `json:"routineId"`
	DayKey    string    `json:"dayKey"` // calendar day, "2006-01-02"
	CheckedBy string    `json:"checkedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// DayKeyFor formats a timestamp to the calendar-day granularity used by checks
func DayKeyFor(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
