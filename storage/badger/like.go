package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/bulletin/core"
	"github.com/poiesic/bulletin/storage"
)

// LikeLedger implements storage.LikeLedger for BadgerDB. The ledger entry and
// the post's like counter are written in the same transaction, so the counter
// can never drift from the ledger.
type LikeLedger struct {
	backend *Backend
}

var _ storage.LikeLedger = (*LikeLedger)(nil)

// NewLikeLedger creates a new LikeLedger.
func NewLikeLedger(backend *Backend) (*LikeLedger, error) {
	return &LikeLedger{
		backend: backend,
	}, nil
}

// Close releases resources. LikeLedger has no resources to release.
func (s *LikeLedger) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (s *LikeLedger) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// Like records a like, returning the post's like count afterwards and whether
// this call recorded a new like. A repeat like by the same user changes
// nothing but still reports the current count. Racing likes conflict on the
// ledger key at commit; the loser is retried once, sees the committed entry,
// and reports false, so at most one caller ever reports true per (post, user).
func (s *LikeLedger) Like(ctx context.Context, postID, userKey string) (int64, bool, error) {
	count, liked, err := s.likeOnce(postID, userKey)
	if errors.Is(err, badger.ErrConflict) {
		count, liked, err = s.likeOnce(postID, userKey)
	}
	return count, liked, err
}

func (s *LikeLedger) likeOnce(postID, userKey string) (int64, bool, error) {
	var count int64
	liked := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		postKey := makePostKey(postID)
		post, err := readPost(tx, postKey)
		if err != nil {
			return err
		}
		if post == nil {
			return storage.ErrNotFound
		}

		likeKey := makeLikeKey(postID, userKey)
		_, err = tx.Get(likeKey)
		if err == nil {
			count = post.Likes
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		like := &core.Like{
			PostID:    postID,
			UserKey:   userKey,
			Timestamp: time.Now().UTC(),
		}
		if err := tx.Set(likeKey, storage.MarshalLike(like)); err != nil {
			return err
		}

		post.Likes++
		if err := tx.Set(postKey, storage.MarshalPost(post)); err != nil {
			return err
		}
		count = post.Likes
		liked = true
		return tx.Commit()
	}, true)
	return count, liked, err
}

// HasLiked reports whether userKey has already liked postID.
func (s *LikeLedger) HasLiked(ctx context.Context, postID, userKey string) (bool, error) {
	liked := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeLikeKey(postID, userKey))
		if err == nil {
			liked = true
			return nil
		}
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	}, false)
	return liked, err
}
