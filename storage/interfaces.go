package storage

import (
	"context"

	"github.com/poiesic/bulletin/core"
)

// Store provides common operations shared across all stores.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// IdentityStore provides operations for managing registered identities.
type IdentityStore interface {
	Store
	// Register inserts a new identity in the pending (unapproved) state.
	// Before inserting, it compares the identity's shibboleth vector against
	// every stored identity's vector; a cosine similarity at or above
	// core.SimilarityThreshold rejects the registration with
	// *core.DuplicateShibbolethError. Field collisions on public key,
	// display name, or network address reject it with
	// *core.UniquenessViolation. Racing registrations of the same values
	// surface as uniqueness violations, not duplicates in the store.
	Register(ctx context.Context, identity *core.Identity) error

	// Approve marks the identity as approved. It is one-way and idempotent:
	// returns true only when the state actually changed, false when the key
	// is unknown or the identity was already approved.
	Approve(ctx context.Context, publicKey string) (bool, error)

	// FindByKey retrieves an identity by public key.
	// Returns ErrNotFound if no such identity exists.
	FindByKey(ctx context.Context, publicKey string) (*core.Identity, error)

	// FindByName retrieves an identity by display name.
	// Returns ErrNotFound if no such identity exists.
	FindByName(ctx context.Context, displayName string) (*core.Identity, error)

	// FindByAddress retrieves an identity by network address.
	// Returns ErrNotFound if no such identity exists.
	FindByAddress(ctx context.Context, networkAddress string) (*core.Identity, error)

	// IsApproved reports whether the identity is approved. Unknown keys and
	// pending identities both report false; callers that need to tell the
	// two apart must use FindByKey.
	IsApproved(ctx context.Context, publicKey string) (bool, error)

	// ListPending returns the redacted view of all unapproved identities,
	// ordered by creation time ascending (oldest first).
	ListPending(ctx context.Context) ([]*core.PendingIdentity, error)
}

// PostStore provides operations for managing posts.
type PostStore interface {
	Store
	// Create inserts a post. It performs no duplicate checking; near-dup
	// screening is the caller's concern, via FindSimilar, before calling.
	Create(ctx context.Context, post *core.Post) error

	// GetByID retrieves a single post by ID.
	// Returns ErrNotFound if the post doesn't exist.
	GetByID(ctx context.Context, id string) (*core.Post, error)

	// GetReplies retrieves the direct replies to a post, ordered by
	// timestamp ascending. A missing or never-referenced parent yields an
	// empty slice, not an error.
	GetReplies(ctx context.Context, parentID string) ([]*core.Post, error)

	// Append adds an entry to a post's append log. Only the post's author
	// may append. Returns true when the entry was recorded; false when the
	// post doesn't exist or requesterKey is not the author (the two cases
	// are deliberately indistinguishable).
	Append(ctx context.Context, postID, requesterKey, content string) (bool, error)

	// FindSimilar scans the newest candidateWindow posts (candidateWindow
	// <= 0 means core.DefaultCandidateWindow) and returns those whose
	// vectors score at or above core.SimilarityThreshold against the query
	// vector, ordered by similarity descending, truncated to limit.
	// Older posts are invisible to this check; full recall belongs to
	// Search.
	FindSimilar(ctx context.Context, vector []float32, limit, candidateWindow int) ([]*core.ScoredPost, error)

	// Search scans every stored post, optionally keeping only posts whose
	// hashtag list contains hashtag exactly, scores each against the query
	// vector with no similarity threshold, orders by similarity descending,
	// and applies offset then limit (limit <= 0 means no limit).
	Search(ctx context.Context, vector []float32, hashtag string, limit, offset int) ([]*core.ScoredPost, error)

	// ListThreads returns top-level posts (no parent), newest first, each
	// annotated with its current direct reply count, optionally filtered by
	// exact hashtag membership, with offset and limit applied after
	// ordering.
	ListThreads(ctx context.Context, hashtag string, limit, offset int) ([]*core.ThreadPost, error)
}

// LikeLedger provides operations for recording likes.
type LikeLedger interface {
	Store
	// Like records that userKey liked postID. It returns the post's like
	// count afterwards and whether this call recorded a new like. A repeated
	// like by the same user is a silent no-op that reports false and still
	// returns the current count; under a race at most one caller reports
	// true. Returns ErrNotFound with a zero count when the post doesn't
	// exist.
	Like(ctx context.Context, postID, userKey string) (int64, bool, error)

	// HasLiked reports whether userKey has already liked postID.
	HasLiked(ctx context.Context, postID, userKey string) (bool, error)
}

// NotificationStore provides operations for per-user notifications.
type NotificationStore interface {
	Store
	// Create inserts a notification. A fresh ID is generated when the
	// notification's ID is empty.
	Create(ctx context.Context, notification *core.Notification) error

	// ListForUser retrieves notifications for a user, newest first. The
	// combined read+unread feed is capped at 50; with unreadOnly every
	// unread notification is returned.
	ListForUser(ctx context.Context, userKey string, unreadOnly bool) ([]*core.Notification, error)

	// MarkAllRead marks every unread notification for the user as read and
	// returns how many changed state.
	MarkAllRead(ctx context.Context, userKey string) (int, error)
}
