package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Embedding and scan defaults shared by the stores and their callers.
const (
	// DefaultVectorDim is the embedding width of all-MiniLM-L6-v2, the model
	// the board was originally deployed with. Callers validate vector length
	// against this before handing vectors to the stores.
	DefaultVectorDim = 384

	// SimilarityThreshold is the cosine similarity above which two pieces of
	// content are considered near-duplicates.
	SimilarityThreshold = 0.85

	// DefaultCandidateWindow bounds the number of recent posts scanned during
	// a dedup check. Dedup is recency-biased on purpose; full recall belongs
	// to Search.
	DefaultCandidateWindow = 1000
)

// KeyDigest produces a fixed-width digest of a string key using BLAKE2b.
// Composite index keys embed these digests so that variable-length IDs
// cannot produce ambiguous key boundaries.
func KeyDigest(s string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(s))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// Identity is a registered participant, keyed by public key.
// The shibboleth is the writing sample submitted at registration; its vector
// is checked for uniqueness against every other identity's vector.
type Identity struct {
	PublicKey        string
	DisplayName      string
	NetworkAddress   string
	CreatedAt        time.Time
	Shibboleth       string
	ShibbolethVector []float32
	Approved         bool
}

// PendingIdentity is the redacted view of an unapproved identity handed to
// the administrative review surface. It deliberately omits the shibboleth
// vector and the network address.
type PendingIdentity struct {
	PublicKey   string
	DisplayName string
	CreatedAt   time.Time
	Shibboleth  string
}

// PostAppend is a single entry in a post's append log.
type PostAppend struct {
	Timestamp time.Time
	Content   string
}

// Post is a bulletin-board post. Content, vector, and hashtags are immutable
// after creation; there is no edit, only the append log.
type Post struct {
	ID        string
	Author    string // display name snapshot at creation time
	AuthorKey string
	Timestamp time.Time
	Content   string
	Vector    []float32
	Hashtags  []string
	Likes     int64
	ParentID  string // empty for root posts
	Appends   []PostAppend
}

// IsReply reports whether the post references a parent.
func (p *Post) IsReply() bool {
	return p.ParentID != ""
}

// HasHashtag reports whether tag is an exact member of the post's hashtags.
func (p *Post) HasHashtag(tag string) bool {
	for _, t := range p.Hashtags {
		if t == tag {
			return true
		}
	}
	return false
}

// Like records that a user liked a post. At most one per (post, user) pair.
type Like struct {
	PostID    string
	UserKey   string
	Timestamp time.Time
}

// NotificationType identifies what triggered a notification.
type NotificationType string

const (
	NotificationReply   NotificationType = "reply"
	NotificationLike    NotificationType = "like"
	NotificationMention NotificationType = "mention"
	NotificationMail    NotificationType = "mail"
)

// Notification is a per-user event created by the board layer.
type Notification struct {
	ID        string
	UserKey   string
	Type      NotificationType
	PostID    string // optional
	FromUser  string // optional
	Message   string
	Timestamp time.Time
	Read      bool
}

// ScoredPost pairs a post with its cosine similarity against a query vector.
type ScoredPost struct {
	Post       *Post
	Similarity float64
}

// ThreadPost pairs a top-level post with a live count of its direct replies.
type ThreadPost struct {
	Post       *Post
	ReplyCount int
}
