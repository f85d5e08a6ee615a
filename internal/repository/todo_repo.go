package repository

import (
	"database/sql"
	"fmt"

	"hearth/internal/database"
	"hearth/internal/models"
)

// TodoRepository handles local store operations for todo items
type TodoRepository struct {
	db database.DBTX
}

// NewTodoRepository creates a new todo repository
func NewTodoRepository(db database.DBTX) *TodoRepository {
	return &TodoRepository{db: db}
}

const todoColumns = `id, family_id, child_id, title, notes, due_date, done, done_at, done_by,
	deleted, created_at, updated_at, updated_by`

func scanTodo(scan func(...interface{}) error) (*models.TodoItem, error) {
	m := &models.TodoItem{}
	var dueDate, doneAt sql.NullTime
	err := scan(
		&m.ID, &m.FamilyID, &m.ChildID, &m.Title, &m.Notes, &dueDate, &m.Done, &doneAt, &m.DoneBy,
		&m.Deleted, &m.CreatedAt, &m.UpdatedAt, &m.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		m.DueDate = &dueDate.Time
	}
	if doneAt.Valid {
		m.DoneAt = &doneAt.Time
	}
	return m, nil
}

// GetByID retrieves a todo by id, or nil when absent
func (r *TodoRepository) GetByID(id string) (*models.TodoItem, error) {
	row := r.db.QueryRow("SELECT "+todoColumns+" FROM todos WHERE id = ?", id)
	m, err := scanTodo(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return m, nil
}

// ListByFamily retrieves the todos of a family
func (r *TodoRepository) ListByFamily(familyID string) ([]models.TodoItem, error) {
	rows, err := r.db.Query("SELECT "+todoColumns+" FROM todos WHERE family_id = ? ORDER BY created_at ASC", familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	var todos []models.TodoItem
	for rows.Next() {
		m, err := scanTodo(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, *m)
	}
	return todos, rows.Err()
}

// Upsert inserts or replaces the todo record
func (r *TodoRepository) Upsert(m *models.TodoItem) error {
	var dueDate, doneAt interface{}
	if m.DueDate != nil {
		dueDate = *m.DueDate
	}
	if m.DoneAt != nil {
		doneAt = *m.DoneAt
	}

	query := `
		UPDATE todos SET family_id = ?, child_id = ?, title = ?, notes = ?, due_date = ?,
			done = ?, done_at = ?, done_by = ?, deleted = ?, created_at = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		m.FamilyID, m.ChildID, m.Title, m.Notes, dueDate,
		m.Done, doneAt, m.DoneBy, m.Deleted, m.CreatedAt, m.UpdatedAt, m.UpdatedBy, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	insert := `
		INSERT INTO todos (id, family_id, child_id, title, notes, due_date, done, done_at, done_by,
			deleted, created_at, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(insert,
		m.ID, m.FamilyID, m.ChildID, m.Title, m.Notes, dueDate, m.Done, doneAt, m.DoneBy,
		m.Deleted, m.CreatedAt, m.UpdatedAt, m.UpdatedBy,
	); err != nil {
		return fmt.Errorf("failed to insert todo: %w", err)
	}
	return nil
}

// Delete removes the todo record
func (r *TodoRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM todos WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return nil
}

// DeleteByFamily removes every todo of a family
func (r *TodoRepository) DeleteByFamily(familyID string) error {
	if _, err := r.db.Exec("DELETE FROM todos WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete todos: %w", err)
	}
	return nil
}
