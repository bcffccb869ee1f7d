// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import "github.com/poiesic/bulletin/storage"

// Stores bundles every store over one shared backend.
type Stores struct {
	Identities    storage.IdentityStore
	Posts         storage.PostStore
	Likes         storage.LikeLedger
	Notifications storage.NotificationStore

	backend *Backend
}

// Close closes the stores and the shared backend.
func (s *Stores) Close() error {
	s.Identities.Close()
	s.Posts.Close()
	s.Likes.Close()
	s.Notifications.Close()
	return s.backend.Close()
}

// Backend exposes the shared backend, mainly for tests that need to poke at
// the database directly.
func (s *Stores) Backend() *Backend {
	return s.backend
}

// NewStores creates all stores over a shared backend.
// Caller must close the result when done.
func NewStores(backend *Backend) (*Stores, error) {
	identities, err := NewIdentityStore(backend)
	if err != nil {
		return nil, err
	}
	posts, err := NewPostStore(backend)
	if err != nil {
		return nil, err
	}
	likes, err := NewLikeLedger(backend)
	if err != nil {
		return nil, err
	}
	notifications, err := NewNotificationStore(backend)
	if err != nil {
		return nil, err
	}

	return &Stores{
		Identities:    identities,
		Posts:         posts,
		Likes:         likes,
		Notifications: notifications,
		backend:       backend,
	}, nil
}

// NewMemoryStores creates in-memory stores for testing.
// Caller must close the result when done.
func NewMemoryStores() (*Stores, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	stores, err := NewStores(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return stores, nil
}
