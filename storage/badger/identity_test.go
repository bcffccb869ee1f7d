package badger

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/bulletin/core"
	"github.com/poiesic/bulletin/storage"
)

func testIdentity(key, name, addr string, vector []float32) *core.Identity {
	return &core.Identity{
		PublicKey:        key,
		DisplayName:      name,
		NetworkAddress:   addr,
		Shibboleth:       "a writing sample for " + name,
		ShibbolethVector: vector,
	}
}

func TestRegisterAndLookup(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()
	identities := stores.Identities

	alice := testIdentity("key-alice", "alice", "alice.example:8080", basisVec(0))
	if err := identities.Register(ctx, alice); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	byKey, err := identities.FindByKey(ctx, "key-alice")
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if byKey.DisplayName != "alice" {
		t.Fatalf("Expected 'alice', got %q", byKey.DisplayName)
	}
	if byKey.Approved {
		t.Fatal("New identities must start pending")
	}

	byName, err := identities.FindByName(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	if byName.PublicKey != "key-alice" {
		t.Fatalf("Expected 'key-alice', got %q", byName.PublicKey)
	}

	byAddr, err := identities.FindByAddress(ctx, "alice.example:8080")
	if err != nil {
		t.Fatalf("FindByAddress failed: %v", err)
	}
	if byAddr.PublicKey != "key-alice" {
		t.Fatalf("Expected 'key-alice', got %q", byAddr.PublicKey)
	}

	if _, err := identities.FindByKey(ctx, "key-nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestApproveIdempotent(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()
	identities := stores.Identities

	if err := identities.Register(ctx, testIdentity("key-alice", "alice", "a:1", basisVec(0))); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	// Unknown key and pending identity both report unapproved.
	for _, key := range []string{"key-nobody", "key-alice"} {
		approved, err := identities.IsApproved(ctx, key)
		if err != nil {
			t.Fatalf("IsApproved failed: %v", err)
		}
		if approved {
			t.Fatalf("Expected %q unapproved", key)
		}
	}

	changed, err := identities.Approve(ctx, "key-alice")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if !changed {
		t.Fatal("First approval must report a state change")
	}

	changed, err = identities.Approve(ctx, "key-alice")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if changed {
		t.Fatal("Re-approval must be a no-op")
	}

	changed, err = identities.Approve(ctx, "key-nobody")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if changed {
		t.Fatal("Approving an unknown key must be a no-op")
	}

	approved, err := identities.IsApproved(ctx, "key-alice")
	if err != nil {
		t.Fatalf("IsApproved failed: %v", err)
	}
	if !approved {
		t.Fatal("Expected alice approved")
	}
}

func TestRegisterDuplicateShibboleth(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()
	identities := stores.Identities

	if err := identities.Register(ctx, testIdentity("key-alice", "alice", "a:1", basisVec(0))); err != nil {
		t.Fatalf("Failed to register alice: %v", err)
	}

	// Similarity 0.90 is above the 0.85 threshold: rejected.
	err = identities.Register(ctx, testIdentity("key-bob", "bob", "b:1", blendVec(0, 1, 0.90)))
	var dup *core.DuplicateShibbolethError
	if !errors.As(err, &dup) {
		t.Fatalf("Expected DuplicateShibbolethError, got %v", err)
	}
	if dup.DisplayName != "alice" {
		t.Fatalf("Expected match against alice, got %q", dup.DisplayName)
	}
	if math.Abs(dup.Similarity-0.90) > 0.001 {
		t.Fatalf("Expected similarity ~0.90, got %f", dup.Similarity)
	}

	// The rejected identity must not have been stored.
	if _, err := identities.FindByKey(ctx, "key-bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for rejected identity, got %v", err)
	}

	// Similarity 0.10 is fine.
	if err := identities.Register(ctx, testIdentity("key-carol", "carol", "c:1", blendVec(0, 1, 0.10))); err != nil {
		t.Fatalf("Expected dissimilar registration to pass: %v", err)
	}
}

func TestRegisterUniqueness(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()
	identities := stores.Identities

	if err := identities.Register(ctx, testIdentity("key-alice", "alice", "a:1", basisVec(0))); err != nil {
		t.Fatalf("Failed to register alice: %v", err)
	}

	tests := []struct {
		name     string
		identity *core.Identity
		field    string
	}{
		{"public key taken", testIdentity("key-alice", "bob", "b:1", basisVec(1)), "public_key"},
		{"display name taken", testIdentity("key-bob", "alice", "b:1", basisVec(2)), "display_name"},
		{"address taken", testIdentity("key-bob", "bob", "a:1", basisVec(3)), "network_address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := identities.Register(ctx, tt.identity)
			var violation *core.UniquenessViolation
			if !errors.As(err, &violation) {
				t.Fatalf("Expected UniquenessViolation, got %v", err)
			}
			if violation.Field != tt.field {
				t.Fatalf("Expected field %q, got %q", tt.field, violation.Field)
			}
		})
	}
}

func TestListPending(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()
	identities := stores.Identities

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	// Registered out of creation order.
	second := testIdentity("key-2", "second", "2:1", basisVec(1))
	second.CreatedAt = base.Add(time.Minute)
	first := testIdentity("key-1", "first", "1:1", basisVec(0))
	first.CreatedAt = base
	third := testIdentity("key-3", "third", "3:1", basisVec(2))
	third.CreatedAt = base.Add(2 * time.Minute)

	for _, identity := range []*core.Identity{second, first, third} {
		if err := identities.Register(ctx, identity); err != nil {
			t.Fatalf("Failed to register %s: %v", identity.DisplayName, err)
		}
	}

	pending, err := identities.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("Expected 3 pending, got %d", len(pending))
	}
	for i, want := range []string{"first", "second", "third"} {
		if pending[i].DisplayName != want {
			t.Fatalf("Expected %q at position %d, got %q", want, i, pending[i].DisplayName)
		}
	}

	// Approval removes an identity from the pending list.
	if _, err := identities.Approve(ctx, "key-2"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	pending, err = identities.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending after approval, got %d", len(pending))
	}
}

func TestRegisterSkipsUnreadableIdentity(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()
	identities := stores.Identities

	if err := identities.Register(ctx, testIdentity("key-alice", "alice", "a:1", basisVec(0))); err != nil {
		t.Fatalf("Failed to register alice: %v", err)
	}

	// A record that won't unmarshal, sitting in the identity key range.
	err = stores.Backend().WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeIdentityKey("key-bad"), []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		t.Fatalf("Failed to plant corrupt record: %v", err)
	}

	// The shibboleth scan still completes, so a dissimilar registration
	// passes and a similar one is still caught.
	if err := identities.Register(ctx, testIdentity("key-bob", "bob", "b:1", blendVec(0, 1, 0.10))); err != nil {
		t.Fatalf("Expected dissimilar registration to pass: %v", err)
	}
	err = identities.Register(ctx, testIdentity("key-carol", "carol", "c:1", blendVec(0, 1, 0.90)))
	var dup *core.DuplicateShibbolethError
	if !errors.As(err, &dup) {
		t.Fatalf("Expected DuplicateShibbolethError, got %v", err)
	}

	pending, err := identities.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending, got %d", len(pending))
	}
}
