package storage

import (
	"testing"
	"time"

	"github.com/poiesic/bulletin/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalIdentity(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name     string
		identity *core.Identity
	}{
		{
			name: "pending identity",
			identity: &core.Identity{
				PublicKey:        "key-1",
				DisplayName:      "alice",
				NetworkAddress:   "alice.example:8080",
				CreatedAt:        now,
				Shibboleth:       "a writing sample with some length to it",
				ShibbolethVector: []float32{0.25, -0.5, 0.125},
			},
		},
		{
			name: "approved identity",
			identity: &core.Identity{
				PublicKey:        "key-2",
				DisplayName:      "bob",
				NetworkAddress:   "bob.example:8080",
				CreatedAt:        now,
				Shibboleth:       "another sample",
				ShibbolethVector: []float32{1},
				Approved:         true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalIdentity(tt.identity)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalIdentity(data)
			require.NoError(t, err)
			assert.Equal(t, tt.identity, decoded)
		})
	}
}

func TestMarshalUnmarshalPost(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	post := &core.Post{
		ID:        "post-1",
		Author:    "alice",
		AuthorKey: "key-1",
		Timestamp: now,
		Content:   "hello board #meta",
		Vector:    []float32{0.1, 0.2, -0.3},
		Hashtags:  []string{"meta"},
		Likes:     7,
		ParentID:  "post-0",
		Appends: []core.PostAppend{
			{Timestamp: now.Add(time.Minute), Content: "an update"},
			{Timestamp: now.Add(2 * time.Minute), Content: "another update"},
		},
	}

	data := MarshalPost(post)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalPost(data)
	require.NoError(t, err)
	assert.Equal(t, post, decoded)
}

func TestMarshalUnmarshalPostMinimal(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	post := &core.Post{
		ID:        "post-2",
		AuthorKey: "key-1",
		Timestamp: now,
		Content:   "no frills",
		Vector:    []float32{1},
	}

	decoded, err := UnmarshalPost(MarshalPost(post))
	require.NoError(t, err)
	assert.Equal(t, post.ID, decoded.ID)
	assert.Empty(t, decoded.Hashtags)
	assert.Empty(t, decoded.Appends)
	assert.Empty(t, decoded.ParentID)
}

func TestMarshalUnmarshalNotification(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	notification := &core.Notification{
		ID:        "notif-1",
		UserKey:   "key-1",
		Type:      core.NotificationMention,
		PostID:    "post-1",
		FromUser:  "bob",
		Message:   "bob mentioned you in a post",
		Timestamp: now,
		Read:      true,
	}

	data := MarshalNotification(notification)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalNotification(data)
	require.NoError(t, err)
	assert.Equal(t, notification, decoded)
}

func TestUnmarshalTruncated(t *testing.T) {
	post := &core.Post{
		ID:        "post-3",
		AuthorKey: "key-1",
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Content:   "about to be truncated",
		Vector:    []float32{0.5, 0.5},
	}
	data := MarshalPost(post)

	_, err := UnmarshalPost(data[:len(data)/2])
	assert.Error(t, err)
}
