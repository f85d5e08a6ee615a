// Package syncer implements the remote→local half of the pipeline: applying
// realtime change batches under last-write-wins, bootstrap hydration of a
// freshly joined family, and the coordinator that serializes every local
// store mutation onto a single writer goroutine.
package syncer

import (
	"encoding/json"
	"fmt"
	"time"

	"hearth/internal/database"
	"hearth/internal/models"
	"hearth/internal/remote"
	"hearth/internal/repository"
)

// Reconciler applies remote state to the local store
type Reconciler struct {
	db *database.DB
}

// NewReconciler creates a reconciler over the local store
func NewReconciler(db *database.DB) *Reconciler {
	return &Reconciler{db: db}
}

// Apply applies one batch of realtime changes for one entity type. The whole
// batch commits under a single transaction, never partially.
func (r *Reconciler) Apply(entityType models.EntityType, changes []remote.Change) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := repository.NewSet(tx)
	for _, change := range changes {
		switch change.Kind {
		case remote.ChangeUpserted:
			err = applyUpsert(repos, entityType, change.Doc)
		case remote.ChangeRemoved:
			err = applyRemove(repos, entityType, change.ID)
		default:
			err = fmt.Errorf("unknown change kind %q", change.Kind)
		}
		if err != nil {
			return fmt.Errorf("failed to apply %s change for %s: %w", change.Kind, change.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit change batch: %w", err)
	}
	return nil
}

// shouldApply is the last-write-wins gate: the incoming record is taken
// wholesale unless the local copy is strictly newer. updatedAt never
// regresses.
func shouldApply(localUpdatedAt, remoteUpdatedAt time.Time) bool {
	return !localUpdatedAt.After(remoteUpdatedAt)
}

func applyUpsert(repos *repository.Set, entityType models.EntityType, doc json.RawMessage) error {
	switch entityType {
	case models.EntityFamily:
		var m models.Family
		if err := json.Unmarshal(doc, &m); err != nil {
			return err
		}
		local, err := repos.Families.GetByID(m.ID)
		if err != nil {
			return err
		}
		if local != nil && !shouldApply(local.UpdatedAt, m.UpdatedAt) {
			return nil
		}
		return repos.Families.Upsert(&m)

	case models.EntityChild:
		var m models.Child
		if err := json.Unmarshal(doc, &m); err != nil {
			return err
		}
		if m.Deleted {
			// Children have no local tombstone: a soft-deleted remote
			// record means remove the local row.
			return applyRemove(repos, models.EntityChild, m.ID)
		}
		local, err := repos.Children.GetByID(m.ID)
		if err != nil {
			return err
		}
		if local != nil && !shouldApply(local.UpdatedAt, m.UpdatedAt) {
			return nil
		}
		return repos.Children.Upsert(&m)

	case models.EntityRoutine:
		var m models.Routine
		if err := json.Unmarshal(doc, &m); err != nil {
			return err
		}
		local, err := repos.Routines.GetByID(m.ID)
		if err != nil {
			return err
		}
		if local != nil && !shouldApply(local.UpdatedAt, m.UpdatedAt) {
			return nil
		}
		return repos.Routines.Upsert(&m)

	case models.EntityRoutineCheck:
		// Append-only: no timestamps to compare, duplicates are no-ops
		var m models.RoutineCheck
		if err := json.Unmarshal(doc, &m); err != nil {
			return err
		}
		return repos.RoutineChecks.Insert(&m)

	case models.EntityTodo:
		var m models.TodoItem
		if err := json.Unmarshal(doc, &m); err != nil {
			return err
		}
		local, err := repos.Todos.GetByID(m.ID)
		if err != nil {
			return err
		}
		if local != nil && !shouldApply(local.UpdatedAt, m.UpdatedAt) {
			return nil
		}
		return repos.Todos.Upsert(&m)

	case models.EntityEvent:
		var m models.Event
		if err := json.Unmarshal(doc, &m); err != nil {
			return err
		}
		local, err := repos.Events.GetByID(m.ID)
		if err != nil {
			return err
		}
		if local != nil && !shouldApply(local.UpdatedAt, m.UpdatedAt) {
			return nil
		}
		return repos.Events.Upsert(&m)

	case models.EntityDocument:
		var m models.Document
		if err := json.Unmarshal(doc, &m); err != nil {
			return err
		}
		local, err := repos.Documents.GetByID(m.ID)
		if err != nil {
			return err
		}
		if local != nil && !shouldApply(local.UpdatedAt, m.UpdatedAt) {
			return nil
		}
		// A record arriving from the feed is the server's merged state
		m.SyncState = models.SyncStateSynced
		m.LastSyncError = ""
		return repos.Documents.Upsert(&m)

	case models.EntityDocumentCategory:
		var m models.DocumentCategory
		if err := json.Unmarshal(doc, &m); err != nil {
			return err
		}
		local, err := repos.Categories.GetByID(m.ID)
		if err != nil {
			return err
		}
		if local != nil && !shouldApply(local.UpdatedAt, m.UpdatedAt) {
			return nil
		}
		m.SyncState = models.SyncStateSynced
		m.LastSyncError = ""
		return repos.Categories.Upsert(&m)

	case models.EntityMember:
		var m models.FamilyMember
		if err := json.Unmarshal(doc, &m); err != nil {
			return err
		}
		local, err := repos.Members.GetByID(m.ID)
		if err != nil {
			return err
		}
		if local != nil && !shouldApply(local.UpdatedAt, m.UpdatedAt) {
			return nil
		}
		return repos.Members.Upsert(&m)

	default:
		return fmt.Errorf("unknown entity type %q", entityType)
	}
}

// applyRemove hard-deletes the local record, unless an upsert for it is
// still queued in the outbox. A pending local edit wins over a concurrent
// remote delete and resurrects the record on the next flush.
func applyRemove(repos *repository.Set, entityType models.EntityType, id string) error {
	pending, err := repos.Outbox.HasPendingUpsert(entityType, id)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	switch entityType {
	case models.EntityFamily:
		return repos.Families.Delete(id)
	case models.EntityChild:
		return repos.Children.Delete(id)
	case models.EntityRoutine:
		return repos.Routines.Delete(id)
	case models.EntityRoutineCheck:
		// Append-only; removals never arrive for checks
		return nil
	case models.EntityTodo:
		return repos.Todos.Delete(id)
	case models.EntityEvent:
		return repos.Events.Delete(id)
	case models.EntityDocument:
		return repos.Documents.Delete(id)
	case models.EntityDocumentCategory:
		return repos.Categories.Delete(id)
	case models.EntityMember:
		return repos.Members.Delete(id)
	default:
		return fmt.Errorf("unknown entity type %q", entityType)
	}
}
