package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validIdentity() *Identity {
	return &Identity{
		PublicKey:        "key-1",
		DisplayName:      "alice",
		NetworkAddress:   "alice.example:8080",
		Shibboleth:       "a writing sample",
		ShibbolethVector: []float32{0.1, 0.2},
	}
}

func TestValidateIdentity(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Identity)
		wantErr error
	}{
		{"valid", func(i *Identity) {}, nil},
		{"nil vector", func(i *Identity) { i.ShibbolethVector = nil }, ErrEmptyVector},
		{"empty public key", func(i *Identity) { i.PublicKey = "" }, ErrEmptyPublicKey},
		{"empty display name", func(i *Identity) { i.DisplayName = "" }, ErrEmptyDisplayName},
		{"empty address", func(i *Identity) { i.NetworkAddress = "" }, ErrEmptyNetworkAddress},
		{"empty shibboleth", func(i *Identity) { i.Shibboleth = "" }, ErrEmptyContent},
		{"future created at", func(i *Identity) { i.CreatedAt = time.Now().Add(time.Hour) }, ErrInvalidTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := validIdentity()
			tt.mutate(identity)
			err := ValidateIdentity(identity)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidIdentity)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateIdentityNil(t *testing.T) {
	assert.ErrorIs(t, ValidateIdentity(nil), ErrInvalidIdentity)
}

func TestValidatePost(t *testing.T) {
	valid := func() *Post {
		return &Post{
			ID:        "post-1",
			AuthorKey: "key-1",
			Content:   "hello",
			Vector:    []float32{0.1, 0.2},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Post)
		wantErr error
	}{
		{"valid", func(p *Post) {}, nil},
		{"empty author key", func(p *Post) { p.AuthorKey = "" }, ErrEmptyPublicKey},
		{"empty content", func(p *Post) { p.Content = "" }, ErrEmptyContent},
		{"empty vector", func(p *Post) { p.Vector = nil }, ErrEmptyVector},
		{"future timestamp", func(p *Post) { p.Timestamp = time.Now().Add(time.Hour) }, ErrInvalidTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := valid()
			tt.mutate(post)
			err := ValidatePost(post)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidPost)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidatePostEmptyID(t *testing.T) {
	post := &Post{
		AuthorKey: "key-1",
		Content:   "hello",
		Vector:    []float32{0.1},
	}
	assert.ErrorIs(t, ValidatePost(post), ErrInvalidPost)
}
