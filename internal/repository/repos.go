// Package repository implements the local store: one repository per entity
// over the dialect-aware database layer. Repositories bind to a DBTX, so the
// same code runs against the connection or against an open transaction.
// The reconciliation engine uses the latter to apply change batches
// all-or-nothing.
package repository

import (
	"hearth/internal/database"
)

// Set bundles every repository bound to one DBTX
type Set struct {
	Families      *FamilyRepository
	Children      *ChildRepository
	Routines      *RoutineRepository
	RoutineChecks *RoutineCheckRepository
	Todos         *TodoRepository
	Events        *EventRepository
	Documents     *DocumentRepository
	Categories    *CategoryRepository
	Members       *MemberRepository
	Outbox        *OutboxRepository
}

// NewSet creates a repository set bound to db (a connection or a transaction)
func NewSet(db database.DBTX) *Set {
	return &Set{
		Families:      NewFamilyRepository(db),
		Children:      NewChildRepository(db),
		Routines:      NewRoutineRepository(db),
		RoutineChecks: NewRoutineCheckRepository(db),
		Todos:         NewTodoRepository(db),
		Events:        NewEventRepository(db),
		Documents:     NewDocumentRepository(db),
		Categories:    NewCategoryRepository(db),
		Members:       NewMemberRepository(db),
		Outbox:        NewOutboxRepository(db),
	}
}
