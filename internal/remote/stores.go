package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hearth/internal/models"
)

// Store is a typed adapter over one Collection: upsert, soft delete, hard
// delete, list, subscribe. Documents are the JSON encoding of the model
// structs, so both sides of the sync speak the same shape.
type Store[T any] struct {
	col Collection
}

// NewStore wraps a collection with a typed adapter
func NewStore[T any](col Collection) *Store[T] {
	return &Store[T]{col: col}
}

// Upsert writes the full record under id
func (s *Store[T]) Upsert(ctx context.Context, id string, v *T) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return s.col.Set(ctx, id, doc)
}

// Fetch reads and decodes the record under id
func (s *Store[T]) Fetch(ctx context.Context, id string) (*T, error) {
	doc, err := s.col.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return &v, nil
}

// List reads and decodes every record in the collection
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	docs, err := s.col.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for id, doc := range docs {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// SoftDelete marks the record deleted while keeping it visible in the
// realtime feed, so peers observe the removal before it disappears. The
// updatedAt bump keeps last-write-wins ordering intact.
func (s *Store[T]) SoftDelete(ctx context.Context, id, userID string, now time.Time) error {
	doc, err := s.col.Get(ctx, id)
	if err != nil {
		return err
	}

	var fields map[string]any
	if err := json.Unmarshal(doc, &fields); err != nil {
		return fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	fields["deleted"] = true
	fields["updatedAt"] = now.UTC().Format(time.RFC3339Nano)
	fields["updatedBy"] = userID

	updated, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", id, err)
	}
	return s.col.Set(ctx, id, updated)
}

// HardDelete removes the record entirely
func (s *Store[T]) HardDelete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

// Subscribe yields realtime change batches for the collection
func (s *Store[T]) Subscribe() (<-chan []Change, func()) {
	return s.col.Subscribe()
}

// Stores bundles the typed per-entity stores for one family
type Stores struct {
	FamilyID string

	Family        *Store[models.Family]
	Children      *Store[models.Child]
	Routines      *Store[models.Routine]
	RoutineChecks *Store[models.RoutineCheck]
	Todos         *Store[models.TodoItem]
	Events        *Store[models.Event]
	Documents     *Store[models.Document]
	Categories    *Store[models.DocumentCategory]
	Members       *Store[models.FamilyMember]
	Invites       *Store[models.Invite]
}

// For builds the store bundle for a family
func For(db Database, familyID string) *Stores {
	return &Stores{
		FamilyID:      familyID,
		Family:        NewStore[models.Family](db.Collection(familyID, ColFamily)),
		Children:      NewStore[models.Child](db.Collection(familyID, ColChildren)),
		Routines:      NewStore[models.Routine](db.Collection(familyID, ColRoutines)),
		RoutineChecks: NewStore[models.RoutineCheck](db.Collection(familyID, ColRoutineChecks)),
		Todos:         NewStore[models.TodoItem](db.Collection(familyID, ColTodos)),
		Events:        NewStore[models.Event](db.Collection(familyID, ColEvents)),
		Documents:     NewStore[models.Document](db.Collection(familyID, ColDocuments)),
		Categories:    NewStore[models.DocumentCategory](db.Collection(familyID, ColDocumentCategory)),
		Members:       NewStore[models.FamilyMember](db.Collection(familyID, ColMembers)),
		Invites:       NewStore[models.Invite](db.Collection(familyID, ColInvites)),
	}
}
