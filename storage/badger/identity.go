package badger

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/bulletin/core"
	"github.com/poiesic/bulletin/storage"
)

// IdentityStore implements storage.IdentityStore for BadgerDB.
type IdentityStore struct {
	backend *Backend
}

var _ storage.IdentityStore = (*IdentityStore)(nil)

// NewIdentityStore creates a new IdentityStore.
func NewIdentityStore(backend *Backend) (*IdentityStore, error) {
	return &IdentityStore{
		backend: backend,
	}, nil
}

// Close releases resources. IdentityStore has no resources to release.
func (s *IdentityStore) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (s *IdentityStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// Register inserts a new identity in the pending state. The shibboleth scan
// and the uniqueness checks run inside the same transaction as the insert, so
// two racing registrations cannot both pass: the loser's commit conflicts and
// is reported as a uniqueness violation.
func (s *IdentityStore) Register(ctx context.Context, identity *core.Identity) error {
	if err := core.ValidateIdentity(identity); err != nil {
		return err
	}

	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}
	identity.Approved = false

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if err := s.checkShibboleth(tx, identity.ShibbolethVector); err != nil {
			return err
		}
		if err := s.checkUniqueness(tx, identity); err != nil {
			return err
		}

		key := makeIdentityKey(identity.PublicKey)
		if err := tx.Set(key, storage.MarshalIdentity(identity)); err != nil {
			return err
		}
		nameKey := makeIdentityNameKey(identity.DisplayName)
		if err := tx.Set(nameKey, []byte(identity.PublicKey)); err != nil {
			return err
		}
		addrKey := makeIdentityAddrKey(identity.NetworkAddress)
		if err := tx.Set(addrKey, []byte(identity.PublicKey)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		// Another registration committed first. Re-run the checks read-only
		// to report which field it took.
		var checkErr error
		txErr := s.backend.WithTx(func(tx *badger.Txn) error {
			checkErr = s.checkUniqueness(tx, identity)
			return nil
		}, false)
		if txErr != nil {
			return txErr
		}
		if checkErr != nil {
			return checkErr
		}
		return storage.ErrTransactionFailed
	}

	return err
}

// checkShibboleth scans every stored identity's shibboleth vector and rejects
// the candidate vector if any scores at or above the similarity threshold.
func (s *IdentityStore) checkShibboleth(tx *badger.Txn, vector []float32) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(identityPrefix + ":")
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var existing *core.Identity
		err := iter.Item().Value(func(val []byte) error {
			var err error
			existing, err = storage.UnmarshalIdentity(val)
			return err
		})
		if err != nil {
			s.backend.logger.Warn("skipping unreadable identity record",
				"key", string(iter.Item().Key()), "error", err)
			continue
		}
		if existing == nil || len(existing.ShibbolethVector) == 0 {
			continue
		}

		similarity, err := core.CosineSimilarity(vector, existing.ShibbolethVector)
		if err != nil {
			// A stored vector that can't be compared is corruption, not a
			// reason to reject the registration.
			s.backend.logger.Warn("skipping uncomparable shibboleth vector",
				"public_key", existing.PublicKey, "error", err)
			continue
		}

		if similarity >= core.SimilarityThreshold {
			return &core.DuplicateShibbolethError{
				PublicKey:   existing.PublicKey,
				DisplayName: existing.DisplayName,
				Similarity:  similarity,
			}
		}
	}
	return nil
}

// checkUniqueness rejects the identity if its public key, display name, or
// network address is already taken. The first collision found wins.
func (s *IdentityStore) checkUniqueness(tx *badger.Txn, identity *core.Identity) error {
	checks := []struct {
		field string
		key   []byte
	}{
		{"public_key", makeIdentityKey(identity.PublicKey)},
		{"display_name", makeIdentityNameKey(identity.DisplayName)},
		{"network_address", makeIdentityAddrKey(identity.NetworkAddress)},
	}
	for _, check := range checks {
		_, err := tx.Get(check.key)
		if err == nil {
			return &core.UniquenessViolation{Field: check.field}
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
	}
	return nil
}

// Approve marks the identity as approved. One-way and idempotent.
func (s *IdentityStore) Approve(ctx context.Context, publicKey string) (bool, error) {
	changed := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeIdentityKey(publicKey)
		identity, err := readIdentity(tx, key)
		if err != nil {
			return err
		}
		if identity == nil || identity.Approved {
			return nil
		}

		identity.Approved = true
		if err := tx.Set(key, storage.MarshalIdentity(identity)); err != nil {
			return err
		}
		changed = true
		return tx.Commit()
	}, true)
	return changed, err
}

// FindByKey retrieves an identity by public key.
func (s *IdentityStore) FindByKey(ctx context.Context, publicKey string) (*core.Identity, error) {
	var result *core.Identity
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readIdentity(tx, makeIdentityKey(publicKey))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindByName retrieves an identity by display name.
func (s *IdentityStore) FindByName(ctx context.Context, displayName string) (*core.Identity, error) {
	return s.findIndirect(makeIdentityNameKey(displayName))
}

// FindByAddress retrieves an identity by network address.
func (s *IdentityStore) FindByAddress(ctx context.Context, networkAddress string) (*core.Identity, error) {
	return s.findIndirect(makeIdentityAddrKey(networkAddress))
}

// findIndirect resolves a lookup-index key to its identity record.
func (s *IdentityStore) findIndirect(indexKey []byte) (*core.Identity, error) {
	var result *core.Identity
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(indexKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var publicKey string
		if err := item.Value(func(val []byte) error {
			publicKey = string(val)
			return nil
		}); err != nil {
			return err
		}

		result, err = readIdentity(tx, makeIdentityKey(publicKey))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// IsApproved reports whether the identity is approved. Unknown keys report
// false, same as pending ones.
func (s *IdentityStore) IsApproved(ctx context.Context, publicKey string) (bool, error) {
	approved := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		identity, err := readIdentity(tx, makeIdentityKey(publicKey))
		if err != nil {
			return err
		}
		if identity != nil {
			approved = identity.Approved
		}
		return nil
	}, false)
	return approved, err
}

// ListPending returns the redacted view of all unapproved identities, oldest
// first.
func (s *IdentityStore) ListPending(ctx context.Context) ([]*core.PendingIdentity, error) {
	var results []*core.PendingIdentity
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(identityPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var identity *core.Identity
			err := iter.Item().Value(func(val []byte) error {
				var err error
				identity, err = storage.UnmarshalIdentity(val)
				return err
			})
			if err != nil {
				s.backend.logger.Warn("skipping unreadable identity record",
					"key", string(iter.Item().Key()), "error", err)
				continue
			}
			if identity == nil || identity.Approved {
				continue
			}
			results = append(results, &core.PendingIdentity{
				PublicKey:   identity.PublicKey,
				DisplayName: identity.DisplayName,
				CreatedAt:   identity.CreatedAt,
				Shibboleth:  identity.Shibboleth,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results, nil
}

// readIdentity reads an identity from the transaction.
func readIdentity(tx *badger.Txn, key []byte) (*core.Identity, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var identity *core.Identity
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		identity, unmarshalErr = storage.UnmarshalIdentity(val)
		return unmarshalErr
	})
	return identity, err
}
