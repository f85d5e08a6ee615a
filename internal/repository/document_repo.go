package repository

import (
	"database/sql"
	"fmt"

	"hearth/internal/database"
	"hearth/internal/models"
)

// DocumentRepository handles local store operations for document metadata
type DocumentRepository struct {
	db database.DBTX
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db database.DBTX) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, family_id, child_id, category_id, title, file_name, mime_type,
	size_bytes, storage_path, remote_url, sync_state, last_sync_error, deleted,
	created_at, updated_at, updated_by`

func scanDocument(scan func(...interface{}) error) (*models.Document, error) {
	m := &models.Document{}
	var state string
	err := scan(
		&m.ID, &m.FamilyID, &m.ChildID, &m.CategoryID, &m.Title, &m.FileName, &m.MIMEType,
		&m.SizeBytes, &m.StoragePath, &m.RemoteURL, &state, &m.LastSyncError, &m.Deleted,
		&m.CreatedAt, &m.UpdatedAt, &m.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	m.SyncState = models.SyncState(state)
	return m, nil
}

// GetByID retrieves a document by id, or nil when absent
func (r *DocumentRepository) GetByID(id string) (*models.Document, error) {
	row := r.db.QueryRow("SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	m, err := scanDocument(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return m, nil
}

// ListByFamily retrieves the documents of a family
func (r *DocumentRepository) ListByFamily(familyID string) ([]models.Document, error) {
	rows, err := r.db.Query("SELECT "+documentColumns+" FROM documents WHERE family_id = ? ORDER BY created_at ASC", familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		m, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *m)
	}
	return docs, rows.Err()
}

// Upsert inserts or replaces the document record
func (r *DocumentRepository) Upsert(m *models.Document) error {
	query := `
		UPDATE documents SET family_id = ?, child_id = ?, category_id = ?, title = ?, file_name = ?,
			mime_type = ?, size_bytes = ?, storage_path = ?, remote_url = ?, sync_state = ?,
			last_sync_error = ?, deleted = ?, created_at = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		m.FamilyID, m.ChildID, m.CategoryID, m.Title, m.FileName,
		m.MIMEType, m.SizeBytes, m.StoragePath, m.RemoteURL, string(m.SyncState),
		m.LastSyncError, m.Deleted, m.CreatedAt, m.UpdatedAt, m.UpdatedBy, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	insert := `
		INSERT INTO documents (id, family_id, child_id, category_id, title, file_name, mime_type,
			size_bytes, storage_path, remote_url, sync_state, last_sync_error, deleted,
			created_at, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(insert,
		m.ID, m.FamilyID, m.ChildID, m.CategoryID, m.Title, m.FileName, m.MIMEType,
		m.SizeBytes, m.StoragePath, m.RemoteURL, string(m.SyncState), m.LastSyncError, m.Deleted,
		m.CreatedAt, m.UpdatedAt, m.UpdatedBy,
	); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// SetSyncState records the outcome of a remote push for the sync indicator
func (r *DocumentRepository) SetSyncState(id string, state models.SyncState, syncErr string) error {
	query := "UPDATE documents SET sync_state = ?, last_sync_error = ? WHERE id = ?"
	if _, err := r.db.Exec(query, string(state), syncErr, id); err != nil {
		return fmt.Errorf("failed to set document sync state: %w", err)
	}
	return nil
}

// Delete removes the document record
func (r *DocumentRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// DeleteByFamily removes every document of a family
func (r *DocumentRepository) DeleteByFamily(familyID string) error {
	if _, err := r.db.Exec("DELETE FROM documents WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}
