package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/bulletin/core"
	"github.com/poiesic/bulletin/rank"
	"github.com/poiesic/bulletin/storage"
)

// mentionPattern matches @name references in post content.
var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_.-]+)`)

// Service is the board's collaborator layer. It ties the stores together:
// registration with dedup screening, posting with the similarity warning
// flow, likes, appends, threads, search, and the notification fan-out.
// Notification writes happen asynchronously on a worker pool; their failures
// are logged and never fail the call that triggered them.
type Service struct {
	identities      storage.IdentityStore
	posts           storage.PostStore
	likes           storage.LikeLedger
	notifications   storage.NotificationStore
	vectorDim       int
	candidateWindow int
	notifyPool      *ants.Pool
	logger          *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithVectorDim sets the embedding dimension every incoming vector is
// validated against. Default is core.DefaultVectorDim.
func WithVectorDim(dim int) Option {
	return func(s *Service) error {
		if dim < 1 {
			return fmt.Errorf("%w: dimension must be positive", core.ErrDimension)
		}
		s.vectorDim = dim
		return nil
	}
}

// WithCandidateWindow sets how many recent posts the dedup check scans.
// Default is core.DefaultCandidateWindow.
func WithCandidateWindow(window int) Option {
	return func(s *Service) error {
		if window < 1 {
			window = core.DefaultCandidateWindow
		}
		s.candidateWindow = window
		return nil
	}
}

// WithNotifyPoolSize sets the worker pool size for notification fan-out.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithNotifyPoolSize(size int) Option {
	return func(s *Service) error {
		if size < 1 {
			size = 1
		}
		if s.notifyPool != nil {
			s.notifyPool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.notifyPool = pool
		return nil
	}
}

// NewService creates a new board service.
func NewService(
	identities storage.IdentityStore,
	posts storage.PostStore,
	likes storage.LikeLedger,
	notifications storage.NotificationStore,
	opts ...Option,
) (*Service, error) {
	if identities == nil {
		return nil, ErrIdentityStoreRequired
	}
	if posts == nil {
		return nil, ErrPostStoreRequired
	}
	if likes == nil {
		return nil, ErrLikeLedgerRequired
	}
	if notifications == nil {
		return nil, ErrNotificationStoreRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Service{
		identities:      identities,
		posts:           posts,
		likes:           likes,
		notifications:   notifications,
		vectorDim:       core.DefaultVectorDim,
		candidateWindow: core.DefaultCandidateWindow,
		notifyPool:      pool,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}

	return s, nil
}

// Release releases the notification worker pool.
// The service should not be used after calling Release.
func (s *Service) Release() {
	if s.notifyPool != nil {
		s.notifyPool.Release()
	}
}

// RegisterRequest carries a registration.
type RegisterRequest struct {
	PublicKey        string
	DisplayName      string
	NetworkAddress   string
	Shibboleth       string
	ShibbolethVector []float32
}

// Register validates the shibboleth vector's dimension and registers the
// identity in the pending state. Near-duplicate shibboleths come back as
// *core.DuplicateShibbolethError, field collisions as
// *core.UniquenessViolation.
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	if err := s.checkDim(req.ShibbolethVector); err != nil {
		return err
	}
	return s.identities.Register(ctx, &core.Identity{
		PublicKey:        req.PublicKey,
		DisplayName:      req.DisplayName,
		NetworkAddress:   req.NetworkAddress,
		Shibboleth:       req.Shibboleth,
		ShibbolethVector: req.ShibbolethVector,
	})
}

// PostRequest carries a new post or reply.
type PostRequest struct {
	AuthorKey string
	Content   string
	Vector    []float32
	Hashtags  []string
	ParentID  string
	// Force skips the near-duplicate check and posts unconditionally.
	Force bool
}

// SimilarityWarning reports that a recent post is too similar to the
// submitted content. The submission was not stored; resubmit with Force to
// post anyway.
type SimilarityWarning struct {
	SimilarPostID string
	Similarity    float64
	Message       string
}

// PostReceipt is the outcome of a Post call: exactly one of Post and
// Warning is set.
type PostReceipt struct {
	Post    *core.Post
	Warning *SimilarityWarning
}

// Post stores a new post or reply. Unless the request forces it through, the
// content vector is screened against the most recent posts first; a near
// duplicate yields a receipt carrying a warning instead of a stored post.
// Reply and mention notifications fan out asynchronously after the post is
// stored.
func (s *Service) Post(ctx context.Context, req PostRequest) (*PostReceipt, error) {
	if err := s.checkDim(req.Vector); err != nil {
		return nil, err
	}

	author, err := s.identities.FindByKey(ctx, req.AuthorKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAuthorNotRegistered
		}
		return nil, err
	}
	if !author.Approved {
		return nil, ErrAuthorNotApproved
	}

	var parent *core.Post
	if req.ParentID != "" {
		parent, err = s.posts.GetByID(ctx, req.ParentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
	}

	if !req.Force {
		matches, err := s.posts.FindSimilar(ctx, req.Vector, 1, s.candidateWindow)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			match := matches[0]
			return &PostReceipt{
				Warning: &SimilarityWarning{
					SimilarPostID: match.Post.ID,
					Similarity:    match.Similarity,
					Message: fmt.Sprintf(
						"content is %.0f%% similar to a recent post; resubmit with force to post anyway",
						match.Similarity*100),
				},
			}, nil
		}
	}

	post := &core.Post{
		ID:        uuid.NewString(),
		Author:    author.DisplayName,
		AuthorKey: author.PublicKey,
		Timestamp: time.Now().UTC(),
		Content:   req.Content,
		Vector:    req.Vector,
		Hashtags:  req.Hashtags,
		ParentID:  req.ParentID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	if parent != nil && parent.AuthorKey != post.AuthorKey {
		s.notifyAsync(&core.Notification{
			UserKey:  parent.AuthorKey,
			Type:     core.NotificationReply,
			PostID:   post.ID,
			FromUser: post.Author,
			Message:  fmt.Sprintf("%s replied to your post", post.Author),
		})
	}
	s.notifyMentions(ctx, post)

	return &PostReceipt{Post: post}, nil
}

// notifyMentions fans out a mention notification for every @name in the post
// that resolves to a registered identity. Self-mentions are skipped, as are
// names that don't resolve.
func (s *Service) notifyMentions(ctx context.Context, post *core.Post) {
	seen := make(map[string]bool)
	for _, match := range mentionPattern.FindAllStringSubmatch(post.Content, -1) {
		name := match[1]
		if seen[name] {
			continue
		}
		seen[name] = true

		mentioned, err := s.identities.FindByName(ctx, name)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn("error resolving mention", "name", name, "err", err)
			}
			continue
		}
		if mentioned.PublicKey == post.AuthorKey {
			continue
		}

		s.notifyAsync(&core.Notification{
			UserKey:  mentioned.PublicKey,
			Type:     core.NotificationMention,
			PostID:   post.ID,
			FromUser: post.Author,
			Message:  fmt.Sprintf("%s mentioned you in a post", post.Author),
		})
	}
}

// Like records a like and returns the post's like count afterwards. The
// post's author gets a like notification the first time each user likes the
// post; repeats and self-likes stay silent.
func (s *Service) Like(ctx context.Context, postID, userKey string) (int64, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return 0, err
	}

	count, liked, err := s.likes.Like(ctx, postID, userKey)
	if err != nil {
		return count, err
	}

	if liked && post.AuthorKey != userKey {
		liker, err := s.identities.FindByKey(ctx, userKey)
		fromUser := userKey
		if err == nil {
			fromUser = liker.DisplayName
		}
		s.notifyAsync(&core.Notification{
			UserKey:  post.AuthorKey,
			Type:     core.NotificationLike,
			PostID:   post.ID,
			FromUser: fromUser,
			Message:  fmt.Sprintf("%s liked your post", fromUser),
		})
	}
	return count, nil
}

// Append adds to a post's append log. Returns false when the post doesn't
// exist or the requester isn't its author.
func (s *Service) Append(ctx context.Context, postID, requesterKey, content string) (bool, error) {
	return s.posts.Append(ctx, postID, requesterKey, content)
}

// Thread is a post together with its direct replies, oldest reply first.
type Thread struct {
	Post    *core.Post
	Replies []*core.Post
}

// Thread retrieves a post and its direct replies.
func (s *Service) Thread(ctx context.Context, postID string) (*Thread, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	replies, err := s.posts.GetReplies(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &Thread{Post: post, Replies: replies}, nil
}

// List returns top-level posts newest first, with reply counts, optionally
// filtered by hashtag.
func (s *Service) List(ctx context.Context, hashtag string, limit, offset int) ([]*core.ThreadPost, error) {
	return s.posts.ListThreads(ctx, hashtag, limit, offset)
}

// ListHot returns top-level posts ordered by hotness, hottest first.
func (s *Service) ListHot(ctx context.Context, hashtag string, limit int) ([]*rank.HotPost, error) {
	threads, err := s.posts.ListThreads(ctx, hashtag, 0, 0)
	if err != nil {
		return nil, err
	}
	hot := rank.HotRank(threads, time.Now().UTC())
	if limit > 0 && len(hot) > limit {
		hot = hot[:limit]
	}
	return hot, nil
}

// SearchRequest carries a semantic search.
type SearchRequest struct {
	Vector  []float32
	Hashtag string
	Limit   int
	Offset  int
	// Weights switches the result order from raw similarity to the weighted
	// blend of similarity, likes, and recency. Nil keeps raw similarity.
	Weights *rank.Weights
}

// Search scans every stored post for the query vector. With weights set, the
// full candidate set is re-scored with rank.WeightedRank before offset and
// limit apply.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]*core.ScoredPost, error) {
	if err := s.checkDim(req.Vector); err != nil {
		return nil, err
	}

	if req.Weights == nil {
		return s.posts.Search(ctx, req.Vector, req.Hashtag, req.Limit, req.Offset)
	}

	all, err := s.posts.Search(ctx, req.Vector, req.Hashtag, 0, 0)
	if err != nil {
		return nil, err
	}
	ranked := rank.WeightedRank(all, *req.Weights, time.Now().UTC())
	if req.Offset > 0 {
		if req.Offset >= len(ranked) {
			return nil, nil
		}
		ranked = ranked[req.Offset:]
	}
	if req.Limit > 0 && len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}
	return ranked, nil
}

// Notifications retrieves the user's notification feed, newest first.
func (s *Service) Notifications(ctx context.Context, userKey string, unreadOnly bool) ([]*core.Notification, error) {
	return s.notifications.ListForUser(ctx, userKey, unreadOnly)
}

// MarkNotificationsRead marks the user's notifications read and returns how
// many changed state.
func (s *Service) MarkNotificationsRead(ctx context.Context, userKey string) (int, error) {
	return s.notifications.MarkAllRead(ctx, userKey)
}

// checkDim validates an incoming vector against the configured dimension.
func (s *Service) checkDim(vector []float32) error {
	if len(vector) != s.vectorDim {
		return fmt.Errorf("%w: got %d components, want %d",
			core.ErrDimension, len(vector), s.vectorDim)
	}
	return nil
}

// notifyAsync submits a notification write to the worker pool. Failures are
// logged, never surfaced to the caller.
func (s *Service) notifyAsync(notification *core.Notification) {
	err := s.notifyPool.Submit(func() {
		if err := s.notifications.Create(context.Background(), notification); err != nil {
			s.logger.Error("error creating notification",
				"type", notification.Type, "user", notification.UserKey, "err", err)
		}
	})
	if err != nil {
		s.logger.Error("error submitting notification", "err", err)
	}
}
