package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"hearth/internal/auth"
	"hearth/internal/blob"
	"hearth/internal/config"
	"hearth/internal/database"
	"hearth/internal/invite"
	"hearth/internal/keystore"
	"hearth/internal/mailer"
	"hearth/internal/models"
	"hearth/internal/outbox"
	"hearth/internal/remote"
	"hearth/internal/repository"
	"hearth/internal/service"
	"hearth/internal/syncer"
	"hearth/internal/vault"
)

const flushInterval = 15 * time.Second

// app bundles everything the commands need
type app struct {
	db         *database.DB
	identity   *auth.Identity
	coord      *syncer.Coordinator
	membership *service.MembershipService
	inviteFlow *service.InviteFlow
	documents  *blob.DocumentStore
	queue      *outbox.Queue
}

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env file")
	}

	cfg := config.Load()

	db, err := database.OpenWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	ctx := context.Background()

	identity, err := currentIdentity(cfg)
	if err != nil {
		log.Fatalf("Failed to resolve identity: %v", err)
	}
	log.Printf("Signed in as %s", identity.UserID)

	keys, err := openKeystore()
	if err != nil {
		log.Fatalf("Failed to open keystore: %v", err)
	}
	cipher := vault.NewDocumentCipher(keys)

	// Remote backend. The in-memory implementation serves demos and a
	// single-process deployment; a hosted backend plugs in behind the same
	// interface.
	rdb := remote.NewMemory()

	var storage blob.Storage
	if cfg.BlobBucket != "" {
		storage, err = blob.NewS3Storage(ctx, cfg.AWSRegion, cfg.BlobBucket, cfg.BlobURLExpiry)
		if err != nil {
			log.Fatalf("Failed to initialize blob storage: %v", err)
		}
	} else {
		log.Println("Blob storage disabled: BLOB_BUCKET not configured, using in-memory store")
		storage = blob.NewMemoryStorage()
	}

	mail, err := mailer.New(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName)
	if err != nil {
		log.Fatalf("Failed to initialize mailer: %v", err)
	}

	coord := syncer.NewCoordinator(db, rdb)
	defer coord.Close()

	invites := invite.NewService(rdb, keys, cipher, cfg.InviteTTL)
	a := &app{
		db:         db,
		identity:   identity,
		coord:      coord,
		membership: service.NewMembershipService(db, rdb, keys, invites, coord, *identity, cfg.InviteURIScheme, cfg.FileCachePath),
		inviteFlow: service.NewInviteFlow(invites, mail, cfg.InviteURIScheme),
		documents:  blob.NewDocumentStore(storage, cipher, cfg.FileCachePath),
		queue:      outbox.NewQueue(db, rdb, identity.UserID),
	}

	if err := a.membership.BackfillChildFamilyIDs(); err != nil {
		log.Printf("Warning: child family backfill failed: %v", err)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"run"}
	}

	switch args[0] {
	case "run":
		a.run(ctx)
	case "invite":
		err = a.invite(ctx, args[1:])
	case "join":
		err = a.join(ctx, args[1:])
	case "leave":
		err = a.leave(args[1:])
	case "doc-add":
		err = a.docAdd(ctx, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Usage: hearth [run|invite|join|leave|doc-add]\n")
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Command %s failed: %v", args[0], err)
	}
}

// run starts the sync loops and blocks until interrupted
func (a *app) run(ctx context.Context) {
	// The pin does not survive restarts; re-pin when it is unambiguous
	if a.coord.ActiveFamily() == "" {
		families, err := repository.NewFamilyRepository(a.db).List()
		if err == nil && len(families) == 1 {
			a.coord.SetActiveFamily(families[0].ID)
		}
	}
	if familyID := a.coord.ActiveFamily(); familyID != "" {
		log.Printf("Active family: %s", familyID)
		a.coord.Watch(familyID)
		a.membership.StartRevocationWatch(familyID)
	}

	stopFlush := make(chan struct{})
	go func() {
		ticker := time.NewTicker(flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := a.coord.Do(func() error { return a.queue.Flush(ctx) }); err != nil {
					log.Printf("Outbox flush failed: %v", err)
				}
			case <-stopFlush:
				return
			}
		}
	}()

	log.Println("Sync engine running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	close(stopFlush)

	// Final flush so a clean shutdown leaves nothing queued unnecessarily
	if err := a.coord.Do(func() error { return a.queue.Flush(ctx) }); err != nil {
		log.Printf("Final outbox flush failed: %v", err)
	}
}

// invite issues a single-use invite for a family and prints its URI.
// With an email argument the link is also sent via SES.
func (a *app) invite(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: hearth invite <family-id> [email]")
	}
	familyID := args[0]

	family, err := repository.NewFamilyRepository(a.db).GetByID(familyID)
	if err != nil {
		return err
	}
	if family == nil {
		return fmt.Errorf("unknown family %s", familyID)
	}

	var uri string
	if len(args) > 1 {
		uri, err = a.inviteFlow.IssueAndSend(ctx, familyID, family.Name, a.identity.UserID, args[1])
	} else {
		uri, err = a.inviteFlow.Issue(ctx, familyID, a.identity.UserID)
	}
	if err != nil {
		return err
	}
	fmt.Println(uri)
	return nil
}

// join redeems an invite URI and hydrates the family onto this device
func (a *app) join(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: hearth join <invite-uri>")
	}
	if err := a.membership.Join(ctx, args[0]); err != nil {
		return err
	}
	log.Printf("Joined family %s", a.coord.ActiveFamily())
	return nil
}

// leave removes a family's data from this device
func (a *app) leave(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: hearth leave <family-id>")
	}
	return a.membership.Revoke(args[0])
}

// docAdd encrypts and uploads a file, records it locally and queues the
// record for sync
func (a *app) docAdd(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: hearth doc-add <family-id> <category-id> <file>")
	}
	familyID, categoryID, file := args[0], args[1], args[2]

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:         uuid.New().String(),
		FamilyID:   familyID,
		CategoryID: categoryID,
		Title:      filepath.Base(file),
		FileName:   filepath.Base(file),
		MIMEType:   mimeTypeFor(file),
		SizeBytes:  int64(len(data)),
		SyncState:  models.SyncStatePendingUpsert,
		CreatedAt:  now,
		UpdatedAt:  now,
		UpdatedBy:  a.identity.UserID,
	}

	path, err := a.documents.Upload(ctx, doc, data, a.identity.UserID)
	if err != nil {
		return err
	}
	doc.StoragePath = path

	return a.coord.Do(func() error {
		repos := repository.NewSet(a.db)
		if err := repos.Documents.Upsert(doc); err != nil {
			return err
		}
		return repos.Outbox.Enqueue(familyID, models.EntityDocument, doc.ID, models.OpUpsert)
	})
}

func mimeTypeFor(file string) string {
	switch filepath.Ext(file) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// currentIdentity resolves the signed-in user from AUTH_TOKEN, falling back
// to a local-only identity when auth is not configured.
func currentIdentity(cfg *config.Config) (*auth.Identity, error) {
	token := os.Getenv("AUTH_TOKEN")
	if token != "" && cfg.AuthTokenSecret != "" {
		return auth.FromToken(token, []byte(cfg.AuthTokenSecret))
	}
	log.Println("Auth not configured, using local identity")
	return &auth.Identity{UserID: "local"}, nil
}

// openKeystore prefers the platform keyring and falls back to memory when
// no keyring backend is available (headless environments, CI)
func openKeystore() (keystore.Store, error) {
	ks, err := keystore.OpenKeyring()
	if err != nil {
		log.Printf("Platform keyring unavailable (%v), using in-memory keystore", err)
		return keystore.NewMemoryStore(), nil
	}
	return ks, nil
}
