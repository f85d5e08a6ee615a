package syncer

import (
	"context"
	"fmt"

	"hearth/internal/database"
	"hearth/internal/models"
	"hearth/internal/remote"
	"hearth/internal/repository"
)

// Bundle is the initial snapshot fetched when a family becomes active:
// the family record plus the collections a device needs before the
// realtime listeners take over.
type Bundle struct {
	Family   *models.Family
	Children []models.Child
	Routines []models.Routine
	Todos    []models.TodoItem
	Events   []models.Event
}

// Bootstrapper hydrates the local store from a remote snapshot
type Bootstrapper struct {
	db *database.DB
}

// NewBootstrapper creates a bootstrapper over the local store
func NewBootstrapper(db *database.DB) *Bootstrapper {
	return &Bootstrapper{db: db}
}

// FetchBundle reads the bootstrap snapshot for one family
func FetchBundle(ctx context.Context, rdb remote.Database, familyID string) (*Bundle, error) {
	stores := remote.For(rdb, familyID)

	family, err := stores.Family.Fetch(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch family %s: %w", familyID, err)
	}

	children, err := stores.Children.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	routines, err := stores.Routines.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list routines: %w", err)
	}
	todos, err := stores.Todos.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	events, err := stores.Events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return &Bundle{
		Family:   family,
		Children: children,
		Routines: routines,
		Todos:    todos,
		Events:   events,
	}, nil
}

// ApplyBundle writes the snapshot into the local store under one
// transaction, last-write-wins per record. When join is true this is an
// explicit family join, and local children absent from the snapshot are
// removed; on ordinary refreshes absence only means the record predates
// the listener and is left alone.
func (b *Bootstrapper) ApplyBundle(bundle *Bundle, join bool) error {
	if bundle == nil || bundle.Family == nil {
		return fmt.Errorf("bootstrap bundle has no family record")
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := repository.NewSet(tx)

	local, err := repos.Families.GetByID(bundle.Family.ID)
	if err != nil {
		return err
	}
	if local == nil || shouldApply(local.UpdatedAt, bundle.Family.UpdatedAt) {
		if err := repos.Families.Upsert(bundle.Family); err != nil {
			return fmt.Errorf("failed to apply family: %w", err)
		}
	}

	for i := range bundle.Children {
		c := &bundle.Children[i]
		if c.Deleted {
			// Soft-deleted remote children must not hydrate; clear any
			// local copy unless a queued local edit still claims it.
			pending, err := repos.Outbox.HasPendingUpsert(models.EntityChild, c.ID)
			if err != nil {
				return err
			}
			if !pending {
				if err := repos.Children.Delete(c.ID); err != nil {
					return fmt.Errorf("failed to remove deleted child %s: %w", c.ID, err)
				}
			}
			continue
		}
		existing, err := repos.Children.GetByID(c.ID)
		if err != nil {
			return err
		}
		if existing != nil && !shouldApply(existing.UpdatedAt, c.UpdatedAt) {
			continue
		}
		if err := repos.Children.Upsert(c); err != nil {
			return fmt.Errorf("failed to apply child %s: %w", c.ID, err)
		}
	}

	for i := range bundle.Routines {
		r := &bundle.Routines[i]
		existing, err := repos.Routines.GetByID(r.ID)
		if err != nil {
			return err
		}
		if existing != nil && !shouldApply(existing.UpdatedAt, r.UpdatedAt) {
			continue
		}
		if err := repos.Routines.Upsert(r); err != nil {
			return fmt.Errorf("failed to apply routine %s: %w", r.ID, err)
		}
	}

	for i := range bundle.Todos {
		t := &bundle.Todos[i]
		existing, err := repos.Todos.GetByID(t.ID)
		if err != nil {
			return err
		}
		if existing != nil && !shouldApply(existing.UpdatedAt, t.UpdatedAt) {
			continue
		}
		if err := repos.Todos.Upsert(t); err != nil {
			return fmt.Errorf("failed to apply todo %s: %w", t.ID, err)
		}
	}

	for i := range bundle.Events {
		e := &bundle.Events[i]
		existing, err := repos.Events.GetByID(e.ID)
		if err != nil {
			return err
		}
		if existing != nil && !shouldApply(existing.UpdatedAt, e.UpdatedAt) {
			continue
		}
		if err := repos.Events.Upsert(e); err != nil {
			return fmt.Errorf("failed to apply event %s: %w", e.ID, err)
		}
	}

	if join {
		if err := removeAbsentChildren(repos, bundle); err != nil {
			return fmt.Errorf("failed to prune children: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bootstrap bundle: %w", err)
	}
	return nil
}

func removeAbsentChildren(repos *repository.Set, bundle *Bundle) error {
	present := make(map[string]bool, len(bundle.Children))
	for i := range bundle.Children {
		present[bundle.Children[i].ID] = true
	}

	local, err := repos.Children.ListByFamily(bundle.Family.ID)
	if err != nil {
		return err
	}
	for i := range local {
		if present[local[i].ID] {
			continue
		}
		if err := repos.Children.Delete(local[i].ID); err != nil {
			return err
		}
	}
	return nil
}
