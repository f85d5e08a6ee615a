package models

import "time"

// SyncState tracks a record's relationship to its remote counterpart
type SyncState string

const (
	SyncStateSynced        SyncState = "synced"
	SyncStatePendingUpsert SyncState = "pendingUpsert"
	SyncStatePendingDelete SyncState = "pendingDelete"
	SyncStateError         SyncState = "error"
)

// Document is the metadata record for an end-to-end encrypted file. The file
// content itself lives in blob storage, already encrypted with the family
// master key; this record never holds plaintext.
type Document struct {
	ID            string    `json:"id"`
	FamilyID      string    `json:"familyId"`
	ChildID       string    `json:"childId,omitempty"`
	CategoryID    string    `json:"categoryId"`
	Title         string    `json:"title"`
	FileName      string    `json:"fileName"`
	MIMEType      string    `json:"mimeType"`
	SizeBytes     int64     `json:"sizeBytes"`
	StoragePath   string    `json:"storagePath"`
	RemoteURL     string    `json:"remoteUrl,omitempty"`
	SyncState     SyncState `json:"syncState"`
	LastSyncError string    `json:"lastSyncError,omitempty"`
	Deleted       bool      `json:"deleted"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	UpdatedBy     string    `json:"updatedBy"`
}

// DocumentCategory groups documents, optionally nested via ParentID
type DocumentCategory struct {
	ID            string    `json:"id"`
	FamilyID      string    `json:"familyId"`
	Title         string    `json:"title"`
	SortOrder     int       `json:"sortOrder"`
	ParentID      string    `json:"parentId,omitempty"`
	SyncState     SyncState `json:"syncState"`
	LastSyncError string    `json:"lastSyncError,omitempty"`
	Deleted       bool      `json:"deleted"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	UpdatedBy     string    `json:"updatedBy"`
}
