package models

import (
	"testing"
	"time"
)

func TestMarkDone(t *testing.T) {
	now := time.Date(2026, 5, 3, 18, 30, 0, 0, time.UTC)
	todo := TodoItem{ID: "t1", Title: "homework", UpdatedBy: "user-a"}

	todo.MarkDone("user-b", now)

	if !todo.Done {
		t.Error("Done = false after MarkDone")
	}
	if todo.DoneAt == nil || !todo.DoneAt.Equal(now) {
		t.Errorf("DoneAt = %v, want %v", todo.DoneAt, now)
	}
	if todo.DoneBy != "user-b" || todo.UpdatedBy != "user-b" {
		t.Errorf("DoneBy = %q, UpdatedBy = %q, want user-b", todo.DoneBy, todo.UpdatedBy)
	}
	if !todo.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", todo.UpdatedAt, now)
	}
}

func TestDayKeyFor(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"utc midday", time.Date(2026, 5, 3, 12, 0, 0, 0, time.UTC), "2026-05-03"},
		{"crosses date line east", time.Date(2026, 5, 3, 23, 30, 0, 0, time.FixedZone("NZST", 12*3600)), "2026-05-03"},
		{"crosses date line west", time.Date(2026, 5, 3, 1, 30, 0, 0, time.FixedZone("HST", -10*3600)), "2026-05-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayKeyFor(tt.in); got != tt.want {
				t.Errorf("DayKeyFor(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestInviteExpiry(t *testing.T) {
	expires := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	inv := Invite{ID: "i1", ExpiresAt: expires}

	if inv.IsExpired(expires.Add(-time.Second)) {
		t.Error("IsExpired() = true before the deadline")
	}
	// Expiry is inclusive: at the deadline the invite is dead
	if !inv.IsExpired(expires) {
		t.Error("IsExpired() = false at the deadline")
	}
	if !inv.IsExpired(expires.Add(time.Second)) {
		t.Error("IsExpired() = false after the deadline")
	}
}

func TestInviteUsage(t *testing.T) {
	inv := Invite{ID: "i1"}
	if inv.IsUsed() {
		t.Error("IsUsed() = true for a fresh invite")
	}
	used := time.Now().UTC()
	inv.UsedAt = &used
	if !inv.IsUsed() {
		t.Error("IsUsed() = false after redemption")
	}
}

func TestIsOwner(t *testing.T) {
	owner := FamilyMember{Role: "owner"}
	parent := FamilyMember{Role: "parent"}
	if !owner.IsOwner() {
		t.Error("owner role not recognized")
	}
	if parent.IsOwner() {
		t.Error("parent role treated as owner")
	}
}
