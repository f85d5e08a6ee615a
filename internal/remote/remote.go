// Package remote defines the boundary contracts for the remote document
// database that reconciles devices, plus an in-memory implementation used by
// tests and the demo daemon. The production backend is an external
// collaborator; everything in this codebase talks to it through these
// interfaces only.
package remote

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned by Get when no document exists for the id
var ErrNotFound = errors.New("document not found")

// ChangeKind discriminates realtime change events
type ChangeKind string

const (
	ChangeUpserted ChangeKind = "upserted"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is one realtime change event from a collection subscription.
// Doc is nil for removals.
type Change struct {
	Kind ChangeKind
	ID   string
	Doc  json.RawMessage
}

// Collection is one entity collection scoped under a family. Documents are
// JSON objects; Set replaces the whole document (every local write carries
// the full record, so merge semantics reduce to replacement).
type Collection interface {
	Set(ctx context.Context, id string, doc json.RawMessage) error
	Get(ctx context.Context, id string) (json.RawMessage, error)
	List(ctx context.Context) (map[string]json.RawMessage, error)
	Delete(ctx context.Context, id string) error

	// Subscribe yields batches of changes occurring after the call.
	// Delivery is best-effort: a subscriber that stops draining may miss
	// batches, and a device that suspects it fell behind recovers by
	// re-fetching the bootstrap snapshot, not by replaying the feed.
	// The returned cancel func releases the subscription.
	Subscribe() (<-chan []Change, func())
}

// Tx is the handle inside a transactional read-modify-write. All reads and
// writes through it commit atomically or not at all; the invite redemption
// protocol depends on this for its at-most-once guarantee.
type Tx interface {
	Get(collection, id string) (json.RawMessage, error)
	Set(collection, id string, doc json.RawMessage) error
}

// Database is the remote document database boundary
type Database interface {
	// Collection returns the named entity collection under a family
	Collection(familyID, name string) Collection

	// RunTransaction executes fn atomically against the family's collections
	RunTransaction(ctx context.Context, familyID string, fn func(Tx) error) error

	// Memberships lists the user's membership records across all families
	Memberships(ctx context.Context, userID string) ([]json.RawMessage, error)
}

// Collection names, one per entity type
const (
	ColFamily           = "family"
	ColChildren         = "children"
	ColRoutines         = "routines"
	ColRoutineChecks    = "routineChecks"
	ColTodos            = "todos"
	ColEvents           = "events"
	ColDocuments        = "documents"
	ColDocumentCategory = "documentCategories"
	ColMembers          = "members"
	ColInvites          = "invites"
)
