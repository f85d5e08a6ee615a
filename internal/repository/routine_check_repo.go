package repository

import (
	"database/sql"
	"fmt"

	"hearth/internal/database"
	"hearth/internal/models"
)

// RoutineCheckRepository handles local store operations for routine checks.
// The check log is append-only: there is no update method here, and the only
// delete is the family-wide wipe when the user leaves a family.
type RoutineCheckRepository struct {
	db database.DBTX
}

// NewRoutineCheckRepository creates a new routine check repository
func NewRoutineCheckRepository(db database.DBTX) *RoutineCheckRepository {
	return &RoutineCheckRepository{db: db}
}

// GetByID retrieves a check by id, or nil when absent
func (r *RoutineCheckRepository) GetByID(id string) (*models.RoutineCheck, error) {
	query := `
		SELECT id, family_id, child_id, routine_id, day_key, checked_by, created_at
		FROM routine_checks WHERE id = ?
	`
	m := &models.RoutineCheck{}
	err := r.db.QueryRow(query, id).Scan(
		&m.ID, &m.FamilyID, &m.ChildID, &m.RoutineID, &m.DayKey, &m.CheckedBy, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get routine check: %w", err)
	}
	return m, nil
}

// Insert appends a completion event. Inserting a check that already exists
// (same id, e.g. re-applied from the realtime feed) is a no-op.
func (r *RoutineCheckRepository) Insert(m *models.RoutineCheck) error {
	existing, err := r.GetByID(m.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	query := `
		INSERT INTO routine_checks (id, family_id, child_id, routine_id, day_key, checked_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query,
		m.ID, m.FamilyID, m.ChildID, m.RoutineID, m.DayKey, m.CheckedBy, m.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert routine check: %w", err)
	}
	return nil
}

// ListByRoutineAndDay retrieves checks for one routine on one calendar day
func (r *RoutineCheckRepository) ListByRoutineAndDay(routineID, dayKey string) ([]models.RoutineCheck, error) {
	query := `
		SELECT id, family_id, child_id, routine_id, day_key, checked_by, created_at
		FROM routine_checks WHERE routine_id = ? AND day_key = ? ORDER BY created_at ASC
	`
	return r.list(query, routineID, dayKey)
}

// ListByFamily retrieves every check of a family
func (r *RoutineCheckRepository) ListByFamily(familyID string) ([]models.RoutineCheck, error) {
	query := `
		SELECT id, family_id, child_id, routine_id, day_key, checked_by, created_at
		FROM routine_checks WHERE family_id = ? ORDER BY created_at ASC
	`
	return r.list(query, familyID)
}

func (r *RoutineCheckRepository) list(query string, args ...interface{}) ([]models.RoutineCheck, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query routine checks: %w", err)
	}
	defer rows.Close()

	var checks []models.RoutineCheck
	for rows.Next() {
		var m models.RoutineCheck
		if err := rows.Scan(
			&m.ID, &m.FamilyID, &m.ChildID, &m.RoutineID, &m.DayKey, &m.CheckedBy, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan routine check: %w", err)
		}
		checks = append(checks, m)
	}
	return checks, rows.Err()
}

// DeleteByFamily removes every check of a family. Part of the leave cascade
// only; nothing else deletes from this table.
func (r *RoutineCheckRepository) DeleteByFamily(familyID string) error {
	if _, err := r.db.Exec("DELETE FROM routine_checks WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete routine checks: %w", err)
	}
	return nil
}
