package board

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/poiesic/bulletin/core"
	"github.com/poiesic/bulletin/rank"
	"github.com/poiesic/bulletin/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basisVec(i int) []float32 {
	vec := make([]float32, core.DefaultVectorDim)
	vec[i] = 1
	return vec
}

func blendVec(i, j int, cos float64) []float32 {
	vec := make([]float32, core.DefaultVectorDim)
	vec[i] = float32(cos)
	vec[j] = float32(math.Sqrt(1 - cos*cos))
	return vec
}

// newTestService builds a board over in-memory stores with alice and bob
// registered and approved.
func newTestService(t *testing.T) (*Service, *badger.Stores) {
	t.Helper()

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	svc, err := NewService(stores.Identities, stores.Posts, stores.Likes, stores.Notifications)
	require.NoError(t, err)
	t.Cleanup(svc.Release)

	ctx := context.Background()
	for i, user := range []struct{ key, name string }{
		{"key-alice", "alice"},
		{"key-bob", "bob"},
	} {
		err := svc.Register(ctx, RegisterRequest{
			PublicKey:        user.key,
			DisplayName:      user.name,
			NetworkAddress:   user.name + ".example:1",
			Shibboleth:       "a distinctive sample from " + user.name,
			ShibbolethVector: basisVec(100 + i),
		})
		require.NoError(t, err)
		_, err = stores.Identities.Approve(ctx, user.key)
		require.NoError(t, err)
	}

	return svc, stores
}

func TestRegisterRejectsWrongDimension(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Register(context.Background(), RegisterRequest{
		PublicKey:        "key-short",
		DisplayName:      "short",
		NetworkAddress:   "short.example:1",
		Shibboleth:       "sample",
		ShibbolethVector: []float32{1, 2, 3},
	})
	assert.ErrorIs(t, err, core.ErrDimension)
}

func TestPostGating(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Post(ctx, PostRequest{
		AuthorKey: "key-nobody",
		Content:   "hello",
		Vector:    basisVec(0),
	})
	assert.ErrorIs(t, err, ErrAuthorNotRegistered)

	// Registered but pending: still refused.
	require.NoError(t, svc.Register(ctx, RegisterRequest{
		PublicKey:        "key-pending",
		DisplayName:      "pending",
		NetworkAddress:   "pending.example:1",
		Shibboleth:       "a pending sample",
		ShibbolethVector: basisVec(200),
	}))
	_, err = svc.Post(ctx, PostRequest{
		AuthorKey: "key-pending",
		Content:   "hello",
		Vector:    basisVec(0),
	})
	assert.ErrorIs(t, err, ErrAuthorNotApproved)

	// Replies must reference a live post.
	_, err = svc.Post(ctx, PostRequest{
		AuthorKey: "key-alice",
		Content:   "reply to nothing",
		Vector:    basisVec(0),
		ParentID:  "post-nope",
	})
	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestPostDuplicateWarningAndForce(t *testing.T) {
	svc, stores := newTestService(t)
	ctx := context.Background()

	first, err := svc.Post(ctx, PostRequest{
		AuthorKey: "key-alice",
		Content:   "original thought",
		Vector:    basisVec(0),
	})
	require.NoError(t, err)
	require.NotNil(t, first.Post)
	require.Nil(t, first.Warning)

	// 0.95 similar: warned, nothing stored.
	dup, err := svc.Post(ctx, PostRequest{
		AuthorKey: "key-bob",
		Content:   "nearly the same thought",
		Vector:    blendVec(0, 1, 0.95),
	})
	require.NoError(t, err)
	require.Nil(t, dup.Post)
	require.NotNil(t, dup.Warning)
	assert.Equal(t, first.Post.ID, dup.Warning.SimilarPostID)
	assert.InDelta(t, 0.95, dup.Warning.Similarity, 0.001)

	threads, err := stores.Posts.ListThreads(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, threads, 1, "warned submission must not be stored")

	// Force pushes it through.
	forced, err := svc.Post(ctx, PostRequest{
		AuthorKey: "key-bob",
		Content:   "nearly the same thought",
		Vector:    blendVec(0, 1, 0.95),
		Force:     true,
	})
	require.NoError(t, err)
	require.NotNil(t, forced.Post)
	assert.Nil(t, forced.Warning)
	assert.Equal(t, "bob", forced.Post.Author)

	threads, err = stores.Posts.ListThreads(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, threads, 2)

	// Dissimilar content never warns.
	other, err := svc.Post(ctx, PostRequest{
		AuthorKey: "key-alice",
		Content:   "entirely different",
		Vector:    blendVec(0, 1, 0.10),
	})
	require.NoError(t, err)
	assert.NotNil(t, other.Post)
}

func TestReplyNotification(t *testing.T) {
	svc, stores := newTestService(t)
	ctx := context.Background()

	root, err := svc.Post(ctx, PostRequest{
		AuthorKey: "key-alice",
		Content:   "root post",
		Vector:    basisVec(0),
	})
	require.NoError(t, err)

	_, err = svc.Post(ctx, PostRequest{
		AuthorKey: "key-bob",
		Content:   "a reply",
		Vector:    basisVec(1),
		ParentID:  root.Post.ID,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		feed, err := stores.Notifications.ListForUser(ctx, "key-alice", true)
		return err == nil && len(feed) == 1
	}, time.Second, 10*time.Millisecond)

	feed, err := stores.Notifications.ListForUser(ctx, "key-alice", true)
	require.NoError(t, err)
	assert.Equal(t, core.NotificationReply, feed[0].Type)
	assert.Equal(t, "bob", feed[0].FromUser)

	// Self-replies stay silent.
	_, err = svc.Post(ctx, PostRequest{
		AuthorKey: "key-alice",
		Content:   "replying to myself",
		Vector:    basisVec(2),
		ParentID:  root.Post.ID,
	})
	require.NoError(t, err)

	// Give the fan-out a moment, then confirm nothing new arrived.
	time.Sleep(50 * time.Millisecond)
	feed, err = stores.Notifications.ListForUser(ctx, "key-alice", true)
	require.NoError(t, err)
	assert.Len(t, feed, 1)
}

func TestMentionNotification(t *testing.T) {
	svc, stores := newTestService(t)
	ctx := context.Background()

	_, err := svc.Post(ctx, PostRequest{
		AuthorKey: "key-alice",
		Content:   "hey @bob and @bob again, also @nobody and @alice",
		Vector:    basisVec(0),
	})
	require.NoError(t, err)

	// One mention for bob despite the repeat; none for the unknown name or
	// the self-mention.
	require.Eventually(t, func() bool {
		feed, err := stores.Notifications.ListForUser(ctx, "key-bob", true)
		return err == nil && len(feed) == 1
	}, time.Second, 10*time.Millisecond)

	feed, err := stores.Notifications.ListForUser(ctx, "key-bob", true)
	require.NoError(t, err)
	assert.Equal(t, core.NotificationMention, feed[0].Type)

	time.Sleep(50 * time.Millisecond)
	aliceFeed, err := stores.Notifications.ListForUser(ctx, "key-alice", true)
	require.NoError(t, err)
	assert.Empty(t, aliceFeed)
}

func TestLikeNotifiesOnce(t *testing.T) {
	svc, stores := newTestService(t)
	ctx := context.Background()

	post, err := svc.Post(ctx, PostRequest{
		AuthorKey: "key-alice",
		Content:   "like me",
		Vector:    basisVec(0),
	})
	require.NoError(t, err)

	count, err := svc.Like(ctx, post.Post.ID, "key-bob")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.Eventually(t, func() bool {
		feed, err := stores.Notifications.ListForUser(ctx, "key-alice", true)
		return err == nil && len(feed) == 1
	}, time.Second, 10*time.Millisecond)

	// Repeat like: count unchanged, no second notification.
	count, err = svc.Like(ctx, post.Post.ID, "key-bob")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// Self-like counts but stays silent.
	count, err = svc.Like(ctx, post.Post.ID, "key-alice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	time.Sleep(50 * time.Millisecond)
	feed, err := stores.Notifications.ListForUser(ctx, "key-alice", true)
	require.NoError(t, err)
	assert.Len(t, feed, 1)
	assert.Equal(t, core.NotificationLike, feed[0].Type)
	assert.Equal(t, "bob", feed[0].FromUser)
}

func TestThreadAndAppend(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	root, err := svc.Post(ctx, PostRequest{
		AuthorKey: "key-alice",
		Content:   "root",
		Vector:    basisVec(0),
	})
	require.NoError(t, err)

	reply, err := svc.Post(ctx, PostRequest{
		AuthorKey: "key-bob",
		Content:   "reply",
		Vector:    basisVec(1),
		ParentID:  root.Post.ID,
	})
	require.NoError(t, err)

	ok, err := svc.Append(ctx, root.Post.ID, "key-alice", "more detail")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Append(ctx, root.Post.ID, "key-bob", "hijack attempt")
	require.NoError(t, err)
	assert.False(t, ok)

	thread, err := svc.Thread(ctx, root.Post.ID)
	require.NoError(t, err)
	assert.Equal(t, root.Post.ID, thread.Post.ID)
	require.Len(t, thread.Replies, 1)
	assert.Equal(t, reply.Post.ID, thread.Replies[0].ID)
	require.Len(t, thread.Post.Appends, 1)
	assert.Equal(t, "more detail", thread.Post.Appends[0].Content)
}

func TestSearchRanked(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Two posts equally similar to the query; one has likes.
	plain, err := svc.Post(ctx, PostRequest{
		AuthorKey: "key-alice",
		Content:   "plain",
		Vector:    blendVec(0, 1, 0.80),
	})
	require.NoError(t, err)

	liked, err := svc.Post(ctx, PostRequest{
		AuthorKey: "key-bob",
		Content:   "liked",
		Vector:    blendVec(0, 2, 0.80),
		Force:     true,
	})
	require.NoError(t, err)

	_, err = svc.Like(ctx, liked.Post.ID, "key-alice")
	require.NoError(t, err)

	weights := rank.DefaultWeights()
	results, err := svc.Search(ctx, SearchRequest{
		Vector:  basisVec(0),
		Weights: &weights,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, liked.Post.ID, results[0].Post.ID)
	assert.Equal(t, plain.Post.ID, results[1].Post.ID)

	// Without weights it's raw similarity; both tie at 0.80 and scan order
	// decides, but both must be present.
	results, err = svc.Search(ctx, SearchRequest{Vector: basisVec(0)})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
