package repository

import (
	"database/sql"
	"fmt"

	"hearth/internal/database"
	"hearth/internal/models"
)

// EventRepository handles local store operations for calendar events
type EventRepository struct {
	db database.DBTX
}

// NewEventRepository creates a new event repository
func NewEventRepository(db database.DBTX) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, family_id, child_id, type, title, starts_at, ends_at, notes,
	deleted, created_at, updated_at, updated_by`

// GetByID retrieves an event by id, or nil when absent
func (r *EventRepository) GetByID(id string) (*models.Event, error) {
	m := &models.Event{}
	err := r.db.QueryRow("SELECT "+eventColumns+" FROM events WHERE id = ?", id).Scan(
		&m.ID, &m.FamilyID, &m.ChildID, &m.Type, &m.Title, &m.StartsAt, &m.EndsAt, &m.Notes,
		&m.Deleted, &m.CreatedAt, &m.UpdatedAt, &m.UpdatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return m, nil
}

// ListByFamily retrieves the events of a family ordered by start time
func (r *EventRepository) ListByFamily(familyID string) ([]models.Event, error) {
	rows, err := r.db.Query("SELECT "+eventColumns+" FROM events WHERE family_id = ? ORDER BY starts_at ASC", familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var m models.Event
		if err := rows.Scan(
			&m.ID, &m.FamilyID, &m.ChildID, &m.Type, &m.Title, &m.StartsAt, &m.EndsAt, &m.Notes,
			&m.Deleted, &m.CreatedAt, &m.UpdatedAt, &m.UpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, m)
	}
	return events, rows.Err()
}

// Upsert inserts or replaces the event record
func (r *EventRepository) Upsert(m *models.Event) error {
	query := `
		UPDATE events SET family_id = ?, child_id = ?, type = ?, title = ?, starts_at = ?, ends_at = ?,
			notes = ?, deleted = ?, created_at = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		m.FamilyID, m.ChildID, m.Type, m.Title, m.StartsAt, m.EndsAt,
		m.Notes, m.Deleted, m.CreatedAt, m.UpdatedAt, m.UpdatedBy, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	insert := `
		INSERT INTO events (id, family_id, child_id, type, title, starts_at, ends_at, notes,
			deleted, created_at, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(insert,
		m.ID, m.FamilyID, m.ChildID, m.Type, m.Title, m.StartsAt, m.EndsAt, m.Notes,
		m.Deleted, m.CreatedAt, m.UpdatedAt, m.UpdatedBy,
	); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Delete removes the event record
func (r *EventRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM events WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// DeleteByFamily removes every event of a family
func (r *EventRepository) DeleteByFamily(familyID string) error {
	if _, err := r.db.Exec("DELETE FROM events WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}
	return nil
}
