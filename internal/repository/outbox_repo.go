package repository

import (
	"fmt"
	"time"

	"hearth/internal/database"
	"hearth/internal/models"
)

// OutboxRepository persists pending remote writes. Entries carry entity
// identity only; the current local record is read at flush time, so entries
// for the same entity are interchangeable and safe to apply repeatedly.
type OutboxRepository struct {
	db database.DBTX
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db database.DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue records an intent to push an entity's current state. An identical
// pending entry (same entity and kind) makes a second one redundant, so it
// is skipped.
func (r *OutboxRepository) Enqueue(familyID string, entityType models.EntityType, entityID string, kind models.OpKind) error {
	var count int
	check := "SELECT COUNT(*) FROM outbox WHERE entity_type = ? AND entity_id = ? AND kind = ?"
	if err := r.db.QueryRow(check, string(entityType), entityID, string(kind)).Scan(&count); err != nil {
		return fmt.Errorf("failed to check outbox: %w", err)
	}
	if count > 0 {
		return nil
	}

	insert := "INSERT INTO outbox (family_id, entity_type, entity_id, kind, created_at) VALUES (?, ?, ?, ?, ?)"
	if _, err := r.db.Exec(insert, familyID, string(entityType), entityID, string(kind), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to enqueue outbox entry: %w", err)
	}
	return nil
}

// ListPending retrieves all pending entries in enqueue order
func (r *OutboxRepository) ListPending() ([]models.SyncOp, error) {
	query := "SELECT id, family_id, entity_type, entity_id, kind, created_at FROM outbox ORDER BY id ASC"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var ops []models.SyncOp
	for rows.Next() {
		var op models.SyncOp
		var entityType, kind string
		if err := rows.Scan(&op.ID, &op.FamilyID, &entityType, &op.EntityID, &kind, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		op.EntityType = models.EntityType(entityType)
		op.Kind = models.OpKind(kind)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// HasPendingUpsert reports whether an upsert is queued for the entity. The
// reconciler consults this when a remote removal races a local edit: the
// pending upsert wins and the removal is skipped.
func (r *OutboxRepository) HasPendingUpsert(entityType models.EntityType, entityID string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM outbox WHERE entity_type = ? AND entity_id = ? AND kind = ?"
	if err := r.db.QueryRow(query, string(entityType), entityID, string(models.OpUpsert)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check outbox: %w", err)
	}
	return count > 0, nil
}

// Delete removes a successfully applied entry
func (r *OutboxRepository) Delete(id int64) error {
	if _, err := r.db.Exec("DELETE FROM outbox WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete outbox entry: %w", err)
	}
	return nil
}

// DeleteByFamily drops every pending entry for a family (leave cascade)
func (r *OutboxRepository) DeleteByFamily(familyID string) error {
	if _, err := r.db.Exec("DELETE FROM outbox WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete outbox entries: %w", err)
	}
	return nil
}
