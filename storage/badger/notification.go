package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/bulletin/core"
	"github.com/poiesic/bulletin/storage"
)

// feedCap bounds the combined read+unread feed. The unread-only view is
// uncapped so a busy feed can't hide unread notifications.
const feedCap = 50

// NotificationStore implements storage.NotificationStore for BadgerDB.
type NotificationStore struct {
	backend *Backend
}

var _ storage.NotificationStore = (*NotificationStore)(nil)

// NewNotificationStore creates a new NotificationStore.
func NewNotificationStore(backend *Backend) (*NotificationStore, error) {
	return &NotificationStore{
		backend: backend,
	}, nil
}

// Close releases resources. NotificationStore has no resources to release.
func (s *NotificationStore) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (s *NotificationStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// Create inserts a notification, generating an ID when none is set.
func (s *NotificationStore) Create(ctx context.Context, notification *core.Notification) error {
	if notification.UserKey == "" {
		return core.ErrEmptyPublicKey
	}
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now().UTC()
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeNotificationKey(notification.ID)
		if err := tx.Set(key, storage.MarshalNotification(notification)); err != nil {
			return err
		}

		userKey := makeNotificationUserKey(notification.UserKey, notification.Timestamp, notification.ID)
		if err := tx.Set(userKey, []byte(notification.ID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListForUser retrieves notifications for a user, newest first. The combined
// feed is capped at 50; with unreadOnly every unread notification is returned.
func (s *NotificationStore) ListForUser(ctx context.Context, userKey string, unreadOnly bool) ([]*core.Notification, error) {
	var results []*core.Notification
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		userPrefix := makePartialNotificationUserKey(userKey)

		// Seek past the newest entry for this user: the partial key plus
		// sixteen 0xFF bytes sorts after every (timestamp, idDigest) pair.
		startKey := make([]byte, len(userPrefix)+16)
		copy(startKey, userPrefix)
		for i := len(userPrefix); i < len(startKey); i++ {
			startKey[i] = 0xFF
		}

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(userPrefix) || slices.Compare(key[:len(userPrefix)], userPrefix) != 0 {
				break
			}

			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			notification, err := readNotification(tx, makeNotificationKey(id))
			if err != nil {
				s.backend.logger.Warn("skipping unreadable notification record",
					"notification_id", id, "error", err)
				continue
			}
			if notification == nil {
				continue
			}
			if unreadOnly && notification.Read {
				continue
			}
			results = append(results, notification)
			if !unreadOnly && len(results) >= feedCap {
				break
			}
		}
		return nil
	}, false)
	return results, err
}

// MarkAllRead marks every unread notification for the user as read and
// returns how many changed state.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userKey string) (int, error) {
	changed := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		userPrefix := makePartialNotificationUserKey(userKey)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(userPrefix); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(userPrefix) || slices.Compare(key[:len(userPrefix)], userPrefix) != 0 {
				break
			}

			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			notifKey := makeNotificationKey(id)
			notification, err := readNotification(tx, notifKey)
			if err != nil {
				s.backend.logger.Warn("skipping unreadable notification record",
					"notification_id", id, "error", err)
				continue
			}
			if notification == nil || notification.Read {
				continue
			}

			notification.Read = true
			if err := tx.Set(notifKey, storage.MarshalNotification(notification)); err != nil {
				return err
			}
			changed++
		}
		if changed == 0 {
			return nil
		}
		iter.Close()
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// readNotification reads a notification from the transaction.
func readNotification(tx *badger.Txn, key []byte) (*core.Notification, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var notification *core.Notification
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		notification, unmarshalErr = storage.UnmarshalNotification(val)
		return unmarshalErr
	})
	return notification, err
}
