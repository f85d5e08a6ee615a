package models

import "time"

// EntityType tags which collection a sync operation or change event refers to
type EntityType string

const (
	EntityFamily           EntityType = "family"
	EntityChild            EntityType = "child"
	EntityRoutine          EntityType = "routine"
	EntityRoutineCheck     EntityType = "routineCheck"
	EntityTodo             EntityType = "todo"
	EntityEvent            EntityType = "event"
	EntityDocument         EntityType = "document"
	EntityDocumentCategory EntityType = "documentCategory"
	EntityMember           EntityType = "member"
)

// OpKind is the kind of remote write a sync operation intends
type OpKind string

const (
	OpUpsert OpKind = "upsert"
	OpDelete OpKind = "delete"
)

// SyncOp is a pending remote write in the outbox. It carries only entity
// identity, never a payload: flush reads the current local record, so
// re-flushing after a partial failure always converges ("push current
// state", not "replay a delta").
type SyncOp struct {
	ID         int64
	FamilyID   string
	EntityType EntityType
	EntityID   string
	Kind       OpKind
	CreatedAt  time.Time
}
