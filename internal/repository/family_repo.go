package repository

import (
	"database/sql"
	"fmt"

	"hearth/internal/database"
	"hearth/internal/models"
)

// FamilyRepository handles local store operations for families
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// GetByID retrieves a family by id, or nil when absent
func (r *FamilyRepository) GetByID(id string) (*models.Family, error) {
	query := `
		SELECT id, name, owner_id, hero_image_path, hero_image_mime, created_at, updated_at, updated_by
		FROM families WHERE id = ?
	`
	f := &models.Family{}
	err := r.db.QueryRow(query, id).Scan(
		&f.ID, &f.Name, &f.OwnerID, &f.HeroImagePath, &f.HeroImageMIME,
		&f.CreatedAt, &f.UpdatedAt, &f.UpdatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return f, nil
}

// List retrieves every local family
func (r *FamilyRepository) List() ([]models.Family, error) {
	query := `
		SELECT id, name, owner_id, hero_image_path, hero_image_mime, created_at, updated_at, updated_by
		FROM families ORDER BY created_at ASC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		var f models.Family
		if err := rows.Scan(
			&f.ID, &f.Name, &f.OwnerID, &f.HeroImagePath, &f.HeroImageMIME,
			&f.CreatedAt, &f.UpdatedAt, &f.UpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, f)
	}
	return families, rows.Err()
}

// Count returns the number of local families
func (r *FamilyRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM families").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count families: %w", err)
	}
	return count, nil
}

// Upsert inserts or replaces the family record
func (r *FamilyRepository) Upsert(f *models.Family) error {
	query := `
		UPDATE families SET name = ?, owner_id = ?, hero_image_path = ?, hero_image_mime = ?,
			created_at = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		f.Name, f.OwnerID, f.HeroImagePath, f.HeroImageMIME,
		f.CreatedAt, f.UpdatedAt, f.UpdatedBy, f.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	insert := `
		INSERT INTO families (id, name, owner_id, hero_image_path, hero_image_mime, created_at, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(insert,
		f.ID, f.Name, f.OwnerID, f.HeroImagePath, f.HeroImageMIME,
		f.CreatedAt, f.UpdatedAt, f.UpdatedBy,
	); err != nil {
		return fmt.Errorf("failed to insert family: %w", err)
	}
	return nil
}

// Delete removes the family root record
func (r *FamilyRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM families WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return nil
}
