package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/bulletin/core"
	"github.com/poiesic/bulletin/storage"
)

// PostStore implements storage.PostStore for BadgerDB.
type PostStore struct {
	backend *Backend
}

var _ storage.PostStore = (*PostStore)(nil)

// NewPostStore creates a new PostStore.
func NewPostStore(backend *Backend) (*PostStore, error) {
	return &PostStore{
		backend: backend,
	}, nil
}

// Close releases resources. PostStore has no resources to release.
func (s *PostStore) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (s *PostStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// Create inserts a post along with its date index entry and, for replies, its
// parent index entry. No duplicate screening happens here.
func (s *PostStore) Create(ctx context.Context, post *core.Post) error {
	if err := core.ValidatePost(post); err != nil {
		return err
	}

	if post.Timestamp.IsZero() {
		post.Timestamp = time.Now().UTC()
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makePostKey(post.ID)
		if err := tx.Set(key, storage.MarshalPost(post)); err != nil {
			return err
		}

		dateKey := makePostDateKey(post.Timestamp, post.ID)
		if err := tx.Set(dateKey, []byte(post.ID)); err != nil {
			return err
		}

		if post.IsReply() {
			parentKey := makePostParentKey(post.ParentID, post.Timestamp, post.ID)
			if err := tx.Set(parentKey, []byte(post.ID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetByID retrieves a single post by ID.
func (s *PostStore) GetByID(ctx context.Context, id string) (*core.Post, error) {
	var result *core.Post
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readPost(tx, makePostKey(id))
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

// GetReplies retrieves direct replies to a post, oldest first. The parent
// index keys sort chronologically, so a forward walk is already in order.
func (s *PostStore) GetReplies(ctx context.Context, parentID string) ([]*core.Post, error) {
	var results []*core.Post
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialPostParentKey(parentID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var postID string
			if err := iter.Item().Value(func(val []byte) error {
				postID = string(val)
				return nil
			}); err != nil {
				return err
			}

			post, err := readPost(tx, makePostKey(postID))
			if err != nil {
				s.backend.logger.Warn("skipping unreadable post record",
					"post_id", postID, "error", err)
				continue
			}
			if post != nil {
				results = append(results, post)
			}
		}
		return nil
	}, false)
	return results, err
}

// Append adds an entry to a post's append log. Only the author may append;
// a missing post and a non-author requester both report false with no error,
// so callers can't probe for post existence through this path.
func (s *PostStore) Append(ctx context.Context, postID, requesterKey, content string) (bool, error) {
	if content == "" {
		return false, core.ErrEmptyContent
	}

	appended := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		key := makePostKey(postID)
		post, err := readPost(tx, key)
		if err != nil {
			return err
		}
		if post == nil || post.AuthorKey != requesterKey {
			return nil
		}

		post.Appends = append(post.Appends, core.PostAppend{
			Timestamp: time.Now().UTC(),
			Content:   content,
		})
		if err := tx.Set(key, storage.MarshalPost(post)); err != nil {
			return err
		}
		appended = true
		return tx.Commit()
	}, true)
	return appended, err
}

// FindSimilar walks the date index newest-first, scoring at most
// candidateWindow posts against the query vector. Only scores at or above
// the similarity threshold qualify. Posts older than the window are never
// examined, however similar; that recency bias is the point of this check.
func (s *PostStore) FindSimilar(ctx context.Context, vector []float32, limit, candidateWindow int) ([]*core.ScoredPost, error) {
	if len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}
	if candidateWindow <= 0 {
		candidateWindow = core.DefaultCandidateWindow
	}

	var results []*core.ScoredPost
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible date key to walk newest-first.
		startKey := makePartialPostDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(postDatePrefix + ":")

		scanned := 0
		for iter.Seek(startKey); iter.Valid() && scanned < candidateWindow; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var postID string
			if err := iter.Item().Value(func(val []byte) error {
				postID = string(val)
				return nil
			}); err != nil {
				return err
			}

			post, err := readPost(tx, makePostKey(postID))
			if err != nil {
				s.backend.logger.Warn("skipping unreadable post record",
					"post_id", postID, "error", err)
				continue
			}
			if post == nil {
				continue
			}
			scanned++

			similarity, err := core.CosineSimilarity(vector, post.Vector)
			if err != nil {
				s.backend.logger.Warn("skipping post with unusable vector",
					"post_id", post.ID, "error", err)
				continue
			}
			if similarity >= core.SimilarityThreshold {
				results = append(results, &core.ScoredPost{
					Post:       post,
					Similarity: similarity,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sortBySimilarity(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Search scans every stored post, scoring each against the query vector.
// Unlike FindSimilar there is no window and no similarity threshold: every
// surviving post is returned, best match first. An empty hashtag means no
// hashtag filtering.
func (s *PostStore) Search(ctx context.Context, vector []float32, hashtag string, limit, offset int) ([]*core.ScoredPost, error) {
	if len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.ScoredPost
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(postPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var post *core.Post
			err := iter.Item().Value(func(val []byte) error {
				var err error
				post, err = storage.UnmarshalPost(val)
				return err
			})
			if err != nil {
				s.backend.logger.Warn("skipping unreadable post record",
					"key", string(iter.Item().Key()), "error", err)
				continue
			}
			if post == nil {
				continue
			}
			if hashtag != "" && !post.HasHashtag(hashtag) {
				continue
			}

			similarity, err := core.CosineSimilarity(vector, post.Vector)
			if err != nil {
				s.backend.logger.Warn("skipping post with unusable vector",
					"post_id", post.ID, "error", err)
				continue
			}
			results = append(results, &core.ScoredPost{
				Post:       post,
				Similarity: similarity,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sortBySimilarity(results)
	return page(results, limit, offset), nil
}

// ListThreads returns top-level posts newest first, each with its current
// direct reply count. Reply counts are computed only for the returned page.
func (s *PostStore) ListThreads(ctx context.Context, hashtag string, limit, offset int) ([]*core.ThreadPost, error) {
	var posts []*core.Post
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(postPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var post *core.Post
			err := iter.Item().Value(func(val []byte) error {
				var err error
				post, err = storage.UnmarshalPost(val)
				return err
			})
			if err != nil {
				s.backend.logger.Warn("skipping unreadable post record",
					"key", string(iter.Item().Key()), "error", err)
				continue
			}
			if post == nil || post.IsReply() {
				continue
			}
			if hashtag != "" && !post.HasHashtag(hashtag) {
				continue
			}
			posts = append(posts, post)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(posts, func(a, b *core.Post) int {
		if a.Timestamp.After(b.Timestamp) {
			return -1
		}
		if a.Timestamp.Before(b.Timestamp) {
			return 1
		}
		return 0
	})
	posts = page(posts, limit, offset)

	results := make([]*core.ThreadPost, 0, len(posts))
	for _, post := range posts {
		count, err := s.countReplies(post.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, &core.ThreadPost{
			Post:       post,
			ReplyCount: count,
		})
	}
	return results, nil
}

// countReplies counts parent index entries for a post without reading the
// reply records.
func (s *PostStore) countReplies(postID string) (int, error) {
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialPostParentKey(postID)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}
			count++
		}
		return nil
	}, false)
	return count, err
}

// sortBySimilarity orders scored posts best match first, keeping scan order
// for equal scores.
func sortBySimilarity(results []*core.ScoredPost) {
	slices.SortStableFunc(results, func(a, b *core.ScoredPost) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		return 0
	})
}

// page applies offset then limit. A non-positive limit means no limit.
func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// readPost reads a post from the transaction.
func readPost(tx *badger.Txn, key []byte) (*core.Post, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var post *core.Post
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		post, unmarshalErr = storage.UnmarshalPost(val)
		return unmarshalErr
	})
	return post, err
}
