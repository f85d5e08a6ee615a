// Package outbox implements the local→remote write pipeline: a durable,
// ordered log of pending operations flushed opportunistically and on demand,
// with at-least-once delivery to the remote store. Entries carry entity
// identity only; flush pushes the record's current state, which is what
// makes retries after ambiguous failures safe.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"hearth/internal/database"
	"hearth/internal/models"
	"hearth/internal/remote"
	"hearth/internal/repository"
)

// Queue is the outbox over the local store and the remote database
type Queue struct {
	db     *database.DB
	remote remote.Database
	userID string
	now    func() time.Time
}

// NewQueue creates an outbox queue acting as the given user
func NewQueue(db *database.DB, rdb remote.Database, userID string) *Queue {
	return &Queue{db: db, remote: rdb, userID: userID, now: time.Now}
}

// Enqueue records an intent to push the entity's current state
func (q *Queue) Enqueue(familyID string, entityType models.EntityType, entityID string, kind models.OpKind) error {
	return repository.NewOutboxRepository(q.db).Enqueue(familyID, entityType, entityID, kind)
}

// Flush drains pending entries in enqueue order. A failing entry stays
// queued for the next flush and, where the entity carries a sync state,
// marks it 'error' with the failure message retained for the UI; flush
// continues with the remaining entries either way.
func (q *Queue) Flush(ctx context.Context) error {
	repos := repository.NewSet(q.db)

	ops, err := repos.Outbox.ListPending()
	if err != nil {
		return err
	}

	var failures []error
	for _, op := range ops {
		if err := q.push(ctx, repos, &op); err != nil {
			log.Printf("Outbox: push %s %s/%s failed: %v", op.Kind, op.EntityType, op.EntityID, err)
			q.recordFailure(repos, &op, err)
			failures = append(failures, fmt.Errorf("%s %s/%s: %w", op.Kind, op.EntityType, op.EntityID, err))
			continue
		}
		if err := repos.Outbox.Delete(op.ID); err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

func (q *Queue) push(ctx context.Context, repos *repository.Set, op *models.SyncOp) error {
	stores := remote.For(q.remote, op.FamilyID)

	switch op.Kind {
	case models.OpUpsert:
		return q.pushUpsert(ctx, repos, stores, op)
	case models.OpDelete:
		return q.pushDelete(ctx, repos, stores, op)
	default:
		return fmt.Errorf("unknown op kind %q", op.Kind)
	}
}

// pushUpsert reads the current local record and writes it remotely. A record
// that no longer exists locally was hard-deleted after enqueue; its delete
// op does the remote work, so the stale upsert is simply dropped.
func (q *Queue) pushUpsert(ctx context.Context, repos *repository.Set, stores *remote.Stores, op *models.SyncOp) error {
	switch op.EntityType {
	case models.EntityFamily:
		m, err := repos.Families.GetByID(op.EntityID)
		if err != nil || m == nil {
			return err
		}
		return stores.Family.Upsert(ctx, m.ID, m)

	case models.EntityChild:
		m, err := repos.Children.GetByID(op.EntityID)
		if err != nil || m == nil {
			return err
		}
		return stores.Children.Upsert(ctx, m.ID, m)

	case models.EntityRoutine:
		m, err := repos.Routines.GetByID(op.EntityID)
		if err != nil || m == nil {
			return err
		}
		return stores.Routines.Upsert(ctx, m.ID, m)

	case models.EntityRoutineCheck:
		m, err := repos.RoutineChecks.GetByID(op.EntityID)
		if err != nil || m == nil {
			return err
		}
		return stores.RoutineChecks.Upsert(ctx, m.ID, m)

	case models.EntityTodo:
		m, err := repos.Todos.GetByID(op.EntityID)
		if err != nil || m == nil {
			return err
		}
		return stores.Todos.Upsert(ctx, m.ID, m)

	case models.EntityEvent:
		m, err := repos.Events.GetByID(op.EntityID)
		if err != nil || m == nil {
			return err
		}
		return stores.Events.Upsert(ctx, m.ID, m)

	case models.EntityDocument:
		m, err := repos.Documents.GetByID(op.EntityID)
		if err != nil || m == nil {
			return err
		}
		if err := stores.Documents.Upsert(ctx, m.ID, m); err != nil {
			return err
		}
		return repos.Documents.SetSyncState(m.ID, models.SyncStateSynced, "")

	case models.EntityDocumentCategory:
		m, err := repos.Categories.GetByID(op.EntityID)
		if err != nil || m == nil {
			return err
		}
		if err := stores.Categories.Upsert(ctx, m.ID, m); err != nil {
			return err
		}
		return repos.Categories.SetSyncState(m.ID, models.SyncStateSynced, "")

	case models.EntityMember:
		m, err := repos.Members.GetByID(op.EntityID)
		if err != nil || m == nil {
			return err
		}
		return stores.Members.Upsert(ctx, m.ID, m)

	default:
		return fmt.Errorf("unknown entity type %q", op.EntityType)
	}
}

// pushDelete soft-deletes the remote record so peers observe the removal in
// the realtime feed before it disappears. A record already absent remotely
// needs no work.
func (q *Queue) pushDelete(ctx context.Context, repos *repository.Set, stores *remote.Stores, op *models.SyncOp) error {
	store, err := storeFor(stores, op.EntityType)
	if err != nil {
		return err
	}

	err = store.SoftDelete(ctx, op.EntityID, q.userID, q.now().UTC())
	if errors.Is(err, remote.ErrNotFound) {
		return nil
	}
	return err
}

// softDeleter narrows the typed stores to the one operation deletes need
type softDeleter interface {
	SoftDelete(ctx context.Context, id, userID string, now time.Time) error
}

func storeFor(stores *remote.Stores, entityType models.EntityType) (softDeleter, error) {
	switch entityType {
	case models.EntityChild:
		return stores.Children, nil
	case models.EntityRoutine:
		return stores.Routines, nil
	case models.EntityTodo:
		return stores.Todos, nil
	case models.EntityEvent:
		return stores.Events, nil
	case models.EntityDocument:
		return stores.Documents, nil
	case models.EntityDocumentCategory:
		return stores.Categories, nil
	case models.EntityMember:
		return stores.Members, nil
	default:
		// Routine checks are append-only, and the family root carries no
		// deletion marker: leaving removes it locally, never remotely. A
		// delete op for either is a bug.
		return nil, fmt.Errorf("entity type %q cannot be deleted", entityType)
	}
}

// recordFailure surfaces a push failure on the entity's sync indicator where
// one exists. Other entity types just stay queued.
func (q *Queue) recordFailure(repos *repository.Set, op *models.SyncOp, pushErr error) {
	var err error
	switch op.EntityType {
	case models.EntityDocument:
		err = repos.Documents.SetSyncState(op.EntityID, models.SyncStateError, pushErr.Error())
	case models.EntityDocumentCategory:
		err = repos.Categories.SetSyncState(op.EntityID, models.SyncStateError, pushErr.Error())
	default:
		return
	}
	if err != nil {
		log.Printf("Outbox: failed to record sync error for %s/%s: %v", op.EntityType, op.EntityID, err)
	}
}
