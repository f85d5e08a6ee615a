package repository

import (
	"database/sql"
	"fmt"

	"hearth/internal/database"
	"hearth/internal/models"
)

// MemberRepository handles local store operations for the materialized view
// of remote family membership
type MemberRepository struct {
	db database.DBTX
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db database.DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberColumns = `id, family_id, user_id, role, name, email, deleted, joined_at, updated_at, updated_by`

func scanMember(scan func(...interface{}) error) (*models.FamilyMember, error) {
	m := &models.FamilyMember{}
	err := scan(
		&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.Name, &m.Email,
		&m.Deleted, &m.JoinedAt, &m.UpdatedAt, &m.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetByID retrieves a member by id, or nil when absent
func (r *MemberRepository) GetByID(id string) (*models.FamilyMember, error) {
	row := r.db.QueryRow("SELECT "+memberColumns+" FROM family_members WHERE id = ?", id)
	m, err := scanMember(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// GetByFamilyAndUser retrieves the membership of a user in a family
func (r *MemberRepository) GetByFamilyAndUser(familyID, userID string) (*models.FamilyMember, error) {
	row := r.db.QueryRow(
		"SELECT "+memberColumns+" FROM family_members WHERE family_id = ? AND user_id = ?",
		familyID, userID,
	)
	m, err := scanMember(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// ListByFamily retrieves the members of a family
func (r *MemberRepository) ListByFamily(familyID string) ([]models.FamilyMember, error) {
	rows, err := r.db.Query(
		"SELECT "+memberColumns+" FROM family_members WHERE family_id = ? ORDER BY joined_at ASC",
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []models.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// Upsert inserts or replaces the member record
func (r *MemberRepository) Upsert(m *models.FamilyMember) error {
	query := `
		UPDATE family_members SET family_id = ?, user_id = ?, role = ?, name = ?, email = ?,
			deleted = ?, joined_at = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		m.FamilyID, m.UserID, m.Role, m.Name, m.Email,
		m.Deleted, m.JoinedAt, m.UpdatedAt, m.UpdatedBy, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	insert := `
		INSERT INTO family_members (id, family_id, user_id, role, name, email, deleted, joined_at, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(insert,
		m.ID, m.FamilyID, m.UserID, m.Role, m.Name, m.Email,
		m.Deleted, m.JoinedAt, m.UpdatedAt, m.UpdatedBy,
	); err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// Delete removes the member record
func (r *MemberRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM family_members WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}

// DeleteByFamily removes every member record of a family
func (r *MemberRepository) DeleteByFamily(familyID string) error {
	if _, err := r.db.Exec("DELETE FROM family_members WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete members: %w", err)
	}
	return nil
}
