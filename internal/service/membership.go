// Package service orchestrates membership lifecycle: joining a family from
// an invite, leaving, revoking access, and data repair jobs. Every local
// write goes through the sync coordinator.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"hearth/internal/auth"
	"hearth/internal/database"
	"hearth/internal/invite"
	"hearth/internal/keystore"
	"hearth/internal/models"
	"hearth/internal/remote"
	"hearth/internal/repository"
	"hearth/internal/syncer"
)

// MembershipService manages which families this device belongs to
type MembershipService struct {
	db        *database.DB
	rdb       remote.Database
	keys      keystore.Store
	invites   *invite.Service
	coord     *syncer.Coordinator
	boot      *syncer.Bootstrapper
	identity  auth.Identity
	uriScheme string
	cachePath string
	now       func() time.Time
}

// NewMembershipService creates the membership orchestrator
func NewMembershipService(db *database.DB, rdb remote.Database, keys keystore.Store, invites *invite.Service, coord *syncer.Coordinator, identity auth.Identity, uriScheme, cachePath string) *MembershipService {
	return &MembershipService{
		db:        db,
		rdb:       rdb,
		keys:      keys,
		invites:   invites,
		coord:     coord,
		boot:      syncer.NewBootstrapper(db),
		identity:  identity,
		uriScheme: uriScheme,
		cachePath: cachePath,
		now:       time.Now,
	}
}

// Join redeems an invite URI and brings the family onto this device. The
// family is pinned as active before anything is written, so every write the
// join performs is already scoped to it.
func (s *MembershipService) Join(ctx context.Context, rawPayload string) (err error) {
	payload, err := invite.ParsePayload(rawPayload, s.uriScheme)
	if err != nil {
		return fmt.Errorf("failed to parse invite: %w", err)
	}

	// A failed join must not leave the pin on a family the device never
	// actually joined.
	prev := s.coord.ActiveFamily()
	defer func() {
		if err != nil {
			s.coord.SetActiveFamily(prev)
		}
	}()
	s.coord.SetActiveFamily(payload.FamilyID)

	if err := s.invites.Redeem(ctx, payload, s.identity.UserID); err != nil {
		return fmt.Errorf("failed to redeem invite: %w", err)
	}

	member := &models.FamilyMember{
		ID:        uuid.New().String(),
		FamilyID:  payload.FamilyID,
		UserID:    s.identity.UserID,
		Role:      "parent",
		Name:      s.identity.Name,
		Email:     s.identity.Email,
		JoinedAt:  s.now().UTC(),
		UpdatedAt: s.now().UTC(),
		UpdatedBy: s.identity.UserID,
	}
	stores := remote.For(s.rdb, payload.FamilyID)
	if err := stores.Members.Upsert(ctx, member.ID, member); err != nil {
		return fmt.Errorf("failed to register membership: %w", err)
	}

	bundle, err := syncer.FetchBundle(ctx, s.rdb, payload.FamilyID)
	if err != nil {
		return fmt.Errorf("failed to fetch family snapshot: %w", err)
	}
	if err := s.coord.Do(func() error {
		if err := s.boot.ApplyBundle(bundle, true); err != nil {
			return err
		}
		return repository.NewMemberRepository(s.db).Upsert(member)
	}); err != nil {
		return fmt.Errorf("failed to hydrate family %s: %w", payload.FamilyID, err)
	}

	s.coord.Watch(payload.FamilyID)
	s.StartRevocationWatch(payload.FamilyID)

	// Other memberships hydrate in the background and never touch the pin
	s.coord.Go("bootstrap-memberships", func() error {
		return s.bootstrapOtherMemberships(ctx, payload.FamilyID)
	})
	return nil
}

// StartRevocationWatch follows the family's membership feed and, when this
// user's membership disappears remotely, runs the revocation procedure:
// local data removed, pin cleared. The returned cancel stops the watch.
func (s *MembershipService) StartRevocationWatch(familyID string) func() {
	ch, cancel := remote.For(s.rdb, familyID).Members.Subscribe()
	go func() {
		for range ch {
			member, err := s.remoteMembership(context.Background(), familyID)
			if err != nil {
				log.Printf("Failed to check membership for family %s: %v", familyID, err)
				continue
			}
			if member {
				continue
			}
			log.Printf("Membership revoked for family %s", familyID)
			if err := s.Revoke(familyID); err != nil {
				log.Printf("Failed to revoke family %s: %v", familyID, err)
			}
			cancel()
			return
		}
	}()
	return cancel
}

// remoteMembership reports whether the user still holds a live membership
// in the family
func (s *MembershipService) remoteMembership(ctx context.Context, familyID string) (bool, error) {
	docs, err := s.rdb.Memberships(ctx, s.identity.UserID)
	if err != nil {
		return false, err
	}
	for _, doc := range docs {
		var m models.FamilyMember
		if err := json.Unmarshal(doc, &m); err != nil {
			continue
		}
		if m.FamilyID == familyID && !m.Deleted {
			return true, nil
		}
	}
	return false, nil
}

// bootstrapOtherMemberships refreshes every other family the user belongs
// to. Runs on the writer goroutine, so bundles apply without racing the
// active family's listeners.
func (s *MembershipService) bootstrapOtherMemberships(ctx context.Context, skipFamilyID string) error {
	docs, err := s.rdb.Memberships(ctx, s.identity.UserID)
	if err != nil {
		return fmt.Errorf("failed to list memberships: %w", err)
	}

	for _, doc := range docs {
		var m models.FamilyMember
		if err := json.Unmarshal(doc, &m); err != nil {
			log.Printf("Failed to decode membership record: %v", err)
			continue
		}
		familyID := m.FamilyID
		if familyID == "" || familyID == skipFamilyID {
			continue
		}
		bundle, err := syncer.FetchBundle(ctx, s.rdb, familyID)
		if err != nil {
			log.Printf("Failed to fetch snapshot for family %s: %v", familyID, err)
			continue
		}
		if err := s.boot.ApplyBundle(bundle, false); err != nil {
			log.Printf("Failed to hydrate family %s: %v", familyID, err)
		}
	}
	return nil
}

// Leave removes every trace of the family from this device: local records
// in one transaction, the cached decrypted files, and the stored family key.
// Remote data is untouched, other members keep working.
func (s *MembershipService) Leave(familyID string) error {
	err := s.coord.Do(func() error {
		return s.deleteFamilyData(familyID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete family %s: %w", familyID, err)
	}

	s.purgeFileCache(familyID)

	if err := s.keys.Delete(familyID, s.identity.UserID); err != nil {
		log.Printf("Failed to remove key for family %s: %v", familyID, err)
	}
	return nil
}

func (s *MembershipService) deleteFamilyData(familyID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Children last among entities: routines and checks reference them
	repos := repository.NewSet(tx)
	steps := []struct {
		name string
		fn   func(string) error
	}{
		{"documents", repos.Documents.DeleteByFamily},
		{"document categories", repos.Categories.DeleteByFamily},
		{"routine checks", repos.RoutineChecks.DeleteByFamily},
		{"routines", repos.Routines.DeleteByFamily},
		{"todos", repos.Todos.DeleteByFamily},
		{"events", repos.Events.DeleteByFamily},
		{"members", repos.Members.DeleteByFamily},
		{"children", repos.Children.DeleteByFamily},
		{"outbox entries", repos.Outbox.DeleteByFamily},
	}
	for _, step := range steps {
		if err := step.fn(familyID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", step.name, err)
		}
	}
	if err := repos.Families.Delete(familyID); err != nil {
		return fmt.Errorf("failed to delete family record: %w", err)
	}

	return tx.Commit()
}

func (s *MembershipService) purgeFileCache(familyID string) {
	if s.cachePath == "" || familyID == "" {
		return
	}
	dir := filepath.Join(s.cachePath, familyID)
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("Failed to purge file cache %s: %v", dir, err)
	}
}

// Revoke is Leave for the active family: the listeners stop and the pin
// clears, leaving the device with no active family.
func (s *MembershipService) Revoke(familyID string) error {
	if s.coord.ActiveFamily() == familyID {
		s.coord.Unwatch()
		s.coord.SetActiveFamily("")
	}
	return s.Leave(familyID)
}

// BackfillChildFamilyIDs assigns a family to children created before
// family scoping existed. It only touches children with no family set, and
// only when exactly one local family exists; anything else is ambiguous and
// left for the user. Safe to run on every startup.
func (s *MembershipService) BackfillChildFamilyIDs() error {
	return s.coord.Do(func() error {
		repos := repository.NewSet(s.db)

		count, err := repos.Families.Count()
		if err != nil {
			return fmt.Errorf("failed to count families: %w", err)
		}
		if count != 1 {
			return nil
		}

		families, err := repos.Families.List()
		if err != nil {
			return fmt.Errorf("failed to list families: %w", err)
		}
		familyID := families[0].ID

		orphans, err := repos.Children.ListWithoutFamily()
		if err != nil {
			return fmt.Errorf("failed to list unscoped children: %w", err)
		}
		for i := range orphans {
			if err := repos.Children.SetFamilyID(orphans[i].ID, familyID); err != nil {
				return fmt.Errorf("failed to backfill child %s: %w", orphans[i].ID, err)
			}
			if err := repos.Outbox.Enqueue(familyID, models.EntityChild, orphans[i].ID, models.OpUpsert); err != nil {
				return fmt.Errorf("failed to queue child %s: %w", orphans[i].ID, err)
			}
		}
		if len(orphans) > 0 {
			log.Printf("Backfilled family id for %d children", len(orphans))
		}
		return nil
	})
}
