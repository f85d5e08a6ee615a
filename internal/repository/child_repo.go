package repository

import (
	"database/sql"
	"fmt"

	"hearth/internal/database"
	"hearth/internal/models"
)

// ChildRepository handles local store operations for children
type ChildRepository struct {
	db database.DBTX
}

// NewChildRepository creates a new child repository
func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

// GetByID retrieves a child by id, or nil when absent
func (r *ChildRepository) GetByID(id string) (*models.Child, error) {
	query := `
		SELECT id, family_id, name, birth_date, created_at, updated_at, updated_by
		FROM children WHERE id = ?
	`
	c := &models.Child{}
	err := r.db.QueryRow(query, id).Scan(
		&c.ID, &c.FamilyID, &c.Name, &c.BirthDate, &c.CreatedAt, &c.UpdatedAt, &c.UpdatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return c, nil
}

// ListByFamily retrieves the children of a family
func (r *ChildRepository) ListByFamily(familyID string) ([]models.Child, error) {
	query := `
		SELECT id, family_id, name, birth_date, created_at, updated_at, updated_by
		FROM children WHERE family_id = ? ORDER BY name ASC
	`
	return r.list(query, familyID)
}

// ListWithoutFamily retrieves children whose family id is still unset.
// Only the backfill pass cares about these.
func (r *ChildRepository) ListWithoutFamily() ([]models.Child, error) {
	query := `
		SELECT id, family_id, name, birth_date, created_at, updated_at, updated_by
		FROM children WHERE family_id = ''
	`
	return r.list(query)
}

func (r *ChildRepository) list(query string, args ...interface{}) ([]models.Child, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		var c models.Child
		if err := rows.Scan(
			&c.ID, &c.FamilyID, &c.Name, &c.BirthDate, &c.CreatedAt, &c.UpdatedAt, &c.UpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

// Upsert inserts or replaces the child record
func (r *ChildRepository) Upsert(c *models.Child) error {
	query := `
		UPDATE children SET family_id = ?, name = ?, birth_date = ?, created_at = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		c.FamilyID, c.Name, c.BirthDate, c.CreatedAt, c.UpdatedAt, c.UpdatedBy, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	insert := `
		INSERT INTO children (id, family_id, name, birth_date, created_at, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(insert,
		c.ID, c.FamilyID, c.Name, c.BirthDate, c.CreatedAt, c.UpdatedAt, c.UpdatedBy,
	); err != nil {
		return fmt.Errorf("failed to insert child: %w", err)
	}
	return nil
}

// SetFamilyID assigns a family to a child (backfill only)
func (r *ChildRepository) SetFamilyID(childID, familyID string) error {
	if _, err := r.db.Exec("UPDATE children SET family_id = ? WHERE id = ?", familyID, childID); err != nil {
		return fmt.Errorf("failed to set child family: %w", err)
	}
	return nil
}

// Delete removes the child record
func (r *ChildRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM children WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	return nil
}

// DeleteByFamily removes every child of a family
func (r *ChildRepository) DeleteByFamily(familyID string) error {
	if _, err := r.db.Exec("DELETE FROM children WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete children: %w", err)
	}
	return nil
}
