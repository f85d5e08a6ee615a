package models

import "time"

// TodoItem is a one-off task for a child
type TodoItem struct {
	ID        string     `json:"id"`
	FamilyID  string     `json:"familyId"`
	ChildID   string     `json:"childId"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Done      bool       `json:"done"`
	DoneAt    *time.Time `json:"doneAt,omitempty"`
	DoneBy    string     `json:"doneBy,omitempty"`
	Deleted   bool       `json:"deleted"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	UpdatedBy string     `json:"updatedBy"`
}

// MarkDone records completion by the given user at the given time
func (t *TodoItem) MarkDone(userID string, now time.Time) {
	t.Done = true
	t.DoneAt = &now
	t.DoneBy = userID
	t.UpdatedAt = now
	t.UpdatedBy = userID
}
