package repository

import (
	"database/sql"
	"fmt"

	"hearth/internal/database"
	"hearth/internal/models"
)

// RoutineRepository handles local store operations for routines
type RoutineRepository struct {
	db database.DBTX
}

// NewRoutineRepository creates a new routine repository
func NewRoutineRepository(db database.DBTX) *RoutineRepository {
	return &RoutineRepository{db: db}
}

// GetByID retrieves a routine by id, or nil when absent
func (r *RoutineRepository) GetByID(id string) (*models.Routine, error) {
	query := `
		SELECT id, family_id, child_id, title, active, sort_order, deleted, created_at, updated_at, updated_by
		FROM routines WHERE id = ?
	`
	m := &models.Routine{}
	err := r.db.QueryRow(query, id).Scan(
		&m.ID, &m.FamilyID, &m.ChildID, &m.Title, &m.Active, &m.SortOrder,
		&m.Deleted, &m.CreatedAt, &m.UpdatedAt, &m.UpdatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get routine: %w", err)
	}
	return m, nil
}

// ListByFamily retrieves the routines of a family in sort order
func (r *RoutineRepository) ListByFamily(familyID string) ([]models.Routine, error) {
	query := `
		SELECT id, family_id, child_id, title, active, sort_order, deleted, created_at, updated_at, updated_by
		FROM routines WHERE family_id = ? ORDER BY sort_order ASC, created_at ASC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query routines: %w", err)
	}
	defer rows.Close()

	var routines []models.Routine
	for rows.Next() {
		var m models.Routine
		if err := rows.Scan(
			&m.ID, &m.FamilyID, &m.ChildID, &m.Title, &m.Active, &m.SortOrder,
			&m.Deleted, &m.CreatedAt, &m.UpdatedAt, &m.UpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan routine: %w", err)
		}
		routines = append(routines, m)
	}
	return routines, rows.Err()
}

// Upsert inserts or replaces the routine record
func (r *RoutineRepository) Upsert(m *models.Routine) error {
	query := `
		UPDATE routines SET family_id = ?, child_id = ?, title = ?, active = ?, sort_order = ?,
			deleted = ?, created_at = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		m.FamilyID, m.ChildID, m.Title, m.Active, m.SortOrder,
		m.Deleted, m.CreatedAt, m.UpdatedAt, m.UpdatedBy, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update routine: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	insert := `
		INSERT INTO routines (id, family_id, child_id, title, active, sort_order, deleted, created_at, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(insert,
		m.ID, m.FamilyID, m.ChildID, m.Title, m.Active, m.SortOrder,
		m.Deleted, m.CreatedAt, m.UpdatedAt, m.UpdatedBy,
	); err != nil {
		return fmt.Errorf("failed to insert routine: %w", err)
	}
	return nil
}

// Delete removes the routine record
func (r *RoutineRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM routines WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete routine: %w", err)
	}
	return nil
}

// DeleteByFamily removes every routine of a family
func (r *RoutineRepository) DeleteByFamily(familyID string) error {
	if _, err := r.db.Exec("DELETE FROM routines WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete routines: %w", err)
	}
	return nil
}
