package repository

import (
	"database/sql"
	"fmt"

	"hearth/internal/database"
	"hearth/internal/models"
)

// CategoryRepository handles local store operations for document categories
type CategoryRepository struct {
	db database.DBTX
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, family_id, title, sort_order, parent_id, sync_state, last_sync_error,
	deleted, created_at, updated_at, updated_by`

func scanCategory(scan func(...interface{}) error) (*models.DocumentCategory, error) {
	m := &models.DocumentCategory{}
	var state string
	err := scan(
		&m.ID, &m.FamilyID, &m.Title, &m.SortOrder, &m.ParentID, &state, &m.LastSyncError,
		&m.Deleted, &m.CreatedAt, &m.UpdatedAt, &m.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	m.SyncState = models.SyncState(state)
	return m, nil
}

// GetByID retrieves a category by id, or nil when absent
func (r *CategoryRepository) GetByID(id string) (*models.DocumentCategory, error) {
	row := r.db.QueryRow("SELECT "+categoryColumns+" FROM document_categories WHERE id = ?", id)
	m, err := scanCategory(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return m, nil
}

// ListByFamily retrieves the categories of a family in sort order
func (r *CategoryRepository) ListByFamily(familyID string) ([]models.DocumentCategory, error) {
	rows, err := r.db.Query(
		"SELECT "+categoryColumns+" FROM document_categories WHERE family_id = ? ORDER BY sort_order ASC",
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.DocumentCategory
	for rows.Next() {
		m, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *m)
	}
	return categories, rows.Err()
}

// Upsert inserts or replaces the category record
func (r *CategoryRepository) Upsert(m *models.DocumentCategory) error {
	query := `
		UPDATE document_categories SET family_id = ?, title = ?, sort_order = ?, parent_id = ?,
			sync_state = ?, last_sync_error = ?, deleted = ?, created_at = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		m.FamilyID, m.Title, m.SortOrder, m.ParentID,
		string(m.SyncState), m.LastSyncError, m.Deleted, m.CreatedAt, m.UpdatedAt, m.UpdatedBy, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	insert := `
		INSERT INTO document_categories (id, family_id, title, sort_order, parent_id, sync_state,
			last_sync_error, deleted, created_at, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(insert,
		m.ID, m.FamilyID, m.Title, m.SortOrder, m.ParentID, string(m.SyncState),
		m.LastSyncError, m.Deleted, m.CreatedAt, m.UpdatedAt, m.UpdatedBy,
	); err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// SetSyncState records the outcome of a remote push for the sync indicator
func (r *CategoryRepository) SetSyncState(id string, state models.SyncState, syncErr string) error {
	query := "UPDATE document_categories SET sync_state = ?, last_sync_error = ? WHERE id = ?"
	if _, err := r.db.Exec(query, string(state), syncErr, id); err != nil {
		return fmt.Errorf("failed to set category sync state: %w", err)
	}
	return nil
}

// Delete removes the category record
func (r *CategoryRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM document_categories WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// DeleteByFamily removes every category of a family
func (r *CategoryRepository) DeleteByFamily(familyID string) error {
	if _, err := r.db.Exec("DELETE FROM document_categories WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete categories: %w", err)
	}
	return nil
}
