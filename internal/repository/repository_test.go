package repository

import (
	"path/filepath"
	"testing"
	"time"

	"hearth/internal/database"
	"hearth/internal/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "repo_test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func TestTodoUpsertInsertThenUpdate(t *testing.T) {
	db := newTestDB(t)
	repo := NewTodoRepository(db)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	todo := &models.TodoItem{
		ID: "t1", FamilyID: "fam-1", ChildID: "c1", Title: "first",
		CreatedAt: now, UpdatedAt: now, UpdatedBy: "user-a",
	}
	if err := repo.Upsert(todo); err != nil {
		t.Fatalf("Upsert() insert error = %v", err)
	}

	todo.Title = "second"
	todo.UpdatedAt = now.Add(time.Minute)
	if err := repo.Upsert(todo); err != nil {
		t.Fatalf("Upsert() update error = %v", err)
	}

	got, err := repo.GetByID("t1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "second" {
		t.Errorf("title = %q, want second", got.Title)
	}

	all, err := repo.ListByFamily("fam-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("upsert of the same id produced %d rows", len(all))
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	db := newTestDB(t)

	got, err := NewTodoRepository(db).GetByID("nope")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetByID() = %+v, want nil for a missing row", got)
	}
}

func TestTodoNullableTimesRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewTodoRepository(db)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)

	todo := &models.TodoItem{
		ID: "t1", FamilyID: "fam-1", ChildID: "c1", Title: "with due date",
		DueDate: &due, CreatedAt: now, UpdatedAt: now, UpdatedBy: "user-a",
	}
	if err := repo.Upsert(todo); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetByID("t1")
	if err != nil {
		t.Fatal(err)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("due date = %v, want %v", got.DueDate, due)
	}
	if got.DoneAt != nil {
		t.Errorf("done at = %v, want nil", got.DoneAt)
	}
}

func TestRoutineCheckInsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoutineCheckRepository(db)
	now := time.Date(2026, 5, 1, 7, 30, 0, 0, time.UTC)

	check := &models.RoutineCheck{
		ID: "rc1", FamilyID: "fam-1", ChildID: "c1", RoutineID: "r1",
		DayKey: models.DayKeyFor(now), CheckedBy: "user-a", CreatedAt: now,
	}
	if err := repo.Insert(check); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	// Same id again, e.g. re-delivered by the realtime feed
	if err := repo.Insert(check); err != nil {
		t.Fatalf("second Insert() error = %v", err)
	}

	checks, err := repo.ListByRoutineAndDay("r1", check.DayKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(checks) != 1 {
		t.Errorf("%d rows for one check id, want 1", len(checks))
	}
}

func TestRoutineCheckTwoCaregiversSameDay(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoutineCheckRepository(db)
	now := time.Date(2026, 5, 1, 7, 30, 0, 0, time.UTC)
	day := models.DayKeyFor(now)

	for i, by := range []string{"user-a", "user-b"} {
		check := &models.RoutineCheck{
			ID: "rc" + string(rune('1'+i)), FamilyID: "fam-1", ChildID: "c1",
			RoutineID: "r1", DayKey: day, CheckedBy: by, CreatedAt: now,
		}
		if err := repo.Insert(check); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	checks, err := repo.ListByRoutineAndDay("r1", day)
	if err != nil {
		t.Fatal(err)
	}
	// Both completions survive as separate rows, nothing merges
	if len(checks) != 2 {
		t.Errorf("%d rows, want 2 independent check events", len(checks))
	}
}

func TestDocumentSetSyncState(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	now := time.Now().UTC()

	doc := &models.Document{
		ID: "d1", FamilyID: "fam-1", CategoryID: "cat-1", Title: "Report",
		FileName: "report.pdf", MIMEType: "application/pdf",
		SyncState: models.SyncStatePendingUpsert,
		CreatedAt: now, UpdatedAt: now, UpdatedBy: "user-a",
	}
	if err := repo.Upsert(doc); err != nil {
		t.Fatal(err)
	}

	if err := repo.SetSyncState("d1", models.SyncStateError, "remote write failed"); err != nil {
		t.Fatalf("SetSyncState() error = %v", err)
	}
	got, _ := repo.GetByID("d1")
	if got.SyncState != models.SyncStateError || got.LastSyncError != "remote write failed" {
		t.Errorf("state = %q, error = %q", got.SyncState, got.LastSyncError)
	}

	if err := repo.SetSyncState("d1", models.SyncStateSynced, ""); err != nil {
		t.Fatal(err)
	}
	got, _ = repo.GetByID("d1")
	if got.SyncState != models.SyncStateSynced || got.LastSyncError != "" {
		t.Errorf("state = %q, error = %q after clear", got.SyncState, got.LastSyncError)
	}
}

func TestMemberGetByFamilyAndUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewMemberRepository(db)
	now := time.Now().UTC()

	for _, m := range []models.FamilyMember{
		{ID: "m1", FamilyID: "fam-1", UserID: "user-a", Role: "owner", JoinedAt: now, UpdatedAt: now, UpdatedBy: "user-a"},
		{ID: "m2", FamilyID: "fam-1", UserID: "user-b", Role: "parent", JoinedAt: now, UpdatedAt: now, UpdatedBy: "user-b"},
		{ID: "m3", FamilyID: "fam-2", UserID: "user-a", Role: "parent", JoinedAt: now, UpdatedAt: now, UpdatedBy: "user-a"},
	} {
		m := m
		if err := repo.Upsert(&m); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.GetByFamilyAndUser("fam-1", "user-a")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != "m1" || !got.IsOwner() {
		t.Errorf("GetByFamilyAndUser() = %+v", got)
	}

	missing, err := repo.GetByFamilyAndUser("fam-2", "user-b")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("GetByFamilyAndUser() = %+v for a non-member", missing)
	}
}

func TestDeleteByFamilyScopesToOneFamily(t *testing.T) {
	db := newTestDB(t)
	repo := NewTodoRepository(db)
	now := time.Now().UTC()

	for _, todo := range []models.TodoItem{
		{ID: "t1", FamilyID: "fam-1", ChildID: "c1", Title: "a", CreatedAt: now, UpdatedAt: now, UpdatedBy: "u"},
		{ID: "t2", FamilyID: "fam-1", ChildID: "c1", Title: "b", CreatedAt: now, UpdatedAt: now, UpdatedBy: "u"},
		{ID: "t3", FamilyID: "fam-2", ChildID: "c2", Title: "c", CreatedAt: now, UpdatedAt: now, UpdatedBy: "u"},
	} {
		todo := todo
		if err := repo.Upsert(&todo); err != nil {
			t.Fatal(err)
		}
	}

	if err := repo.DeleteByFamily("fam-1"); err != nil {
		t.Fatalf("DeleteByFamily() error = %v", err)
	}

	left, _ := repo.ListByFamily("fam-1")
	if len(left) != 0 {
		t.Errorf("%d fam-1 todos survived", len(left))
	}
	other, _ := repo.ListByFamily("fam-2")
	if len(other) != 1 {
		t.Errorf("fam-2 todos = %d, want untouched", len(other))
	}
}

func TestChildBackfillHelpers(t *testing.T) {
	db := newTestDB(t)
	repo := NewChildRepository(db)
	now := time.Now().UTC()

	if err := repo.Upsert(&models.Child{
		ID: "c1", Name: "Unscoped", CreatedAt: now, UpdatedAt: now, UpdatedBy: "u",
	}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Upsert(&models.Child{
		ID: "c2", FamilyID: "fam-1", Name: "Scoped", CreatedAt: now, UpdatedAt: now, UpdatedBy: "u",
	}); err != nil {
		t.Fatal(err)
	}

	orphans, err := repo.ListWithoutFamily()
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 1 || orphans[0].ID != "c1" {
		t.Fatalf("orphans = %+v, want only c1", orphans)
	}

	if err := repo.SetFamilyID("c1", "fam-1"); err != nil {
		t.Fatalf("SetFamilyID() error = %v", err)
	}
	orphans, _ = repo.ListWithoutFamily()
	if len(orphans) != 0 {
		t.Errorf("%d orphans after backfill", len(orphans))
	}
	got, _ := repo.GetByID("c1")
	if got.FamilyID != "fam-1" {
		t.Errorf("family id = %q", got.FamilyID)
	}
}

func TestTransactionRollbackLeavesNoRows(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	repos := NewSet(tx)
	if err := repos.Todos.Upsert(&models.TodoItem{
		ID: "t1", FamilyID: "fam-1", ChildID: "c1", Title: "doomed",
		CreatedAt: now, UpdatedAt: now, UpdatedBy: "u",
	}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}

	got, err := NewTodoRepository(db).GetByID("t1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("row survived a rolled back transaction")
	}
}

func TestOutboxDedupAndOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewOutboxRepository(db)

	if err := repo.Enqueue("fam-1", models.EntityTodo, "t1", models.OpUpsert); err != nil {
		t.Fatal(err)
	}
	// Duplicate of a pending entry collapses
	if err := repo.Enqueue("fam-1", models.EntityTodo, "t1", models.OpUpsert); err != nil {
		t.Fatal(err)
	}
	if err := repo.Enqueue("fam-1", models.EntityEvent, "e1", models.OpDelete); err != nil {
		t.Fatal(err)
	}

	ops, err := repo.ListPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 {
		t.Fatalf("pending = %d, want 2", len(ops))
	}
	// Enqueue order is flush order
	if ops[0].EntityID != "t1" || ops[1].EntityID != "e1" {
		t.Errorf("order = %s, %s", ops[0].EntityID, ops[1].EntityID)
	}

	pending, err := repo.HasPendingUpsert(models.EntityTodo, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if !pending {
		t.Error("HasPendingUpsert() = false for a queued upsert")
	}
	pending, _ = repo.HasPendingUpsert(models.EntityEvent, "e1")
	if pending {
		t.Error("HasPendingUpsert() = true for a queued delete")
	}
}
