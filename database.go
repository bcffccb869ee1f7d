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


package bulletin

import (
	"log/slog"

	"github.com/poiesic/bulletin/board"
	"github.com/poiesic/bulletin/storage"
	"github.com/poiesic/bulletin/storage/badger"
)

// Database is the top-level handle: one BadgerDB backend with every store
// wired over it.
type Database struct {
	backend       *badger.Backend
	identities    storage.IdentityStore
	posts         storage.PostStore
	likes         storage.LikeLedger
	notifications storage.NotificationStore
	logger        *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	inMemory bool
}

// WithInMemory opens the backend in memory instead of on disk.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens the backend at filePath and wires every store over it.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	identities, err := badger.NewIdentityStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	posts, err := badger.NewPostStore(backend)
	if err != nil {
		identities.Close()
		backend.Close()
		return nil, err
	}

	likes, err := badger.NewLikeLedger(backend)
	if err != nil {
		posts.Close()
		identities.Close()
		backend.Close()
		return nil, err
	}

	notifications, err := badger.NewNotificationStore(backend)
	if err != nil {
		likes.Close()
		posts.Close()
		identities.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:       backend,
		identities:    identities,
		posts:         posts,
		likes:         likes,
		notifications: notifications,
		logger:        slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	if err := db.notifications.Close(); err != nil {
		db.logger.Error("error closing notification store", "err", err)
		return err
	}
	if err := db.likes.Close(); err != nil {
		db.logger.Error("error closing like ledger", "err", err)
		return err
	}
	if err := db.posts.Close(); err != nil {
		db.logger.Error("error closing post store", "err", err)
		return err
	}
	if err := db.identities.Close(); err != nil {
		db.logger.Error("error closing identity store", "err", err)
		return err
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) IdentityStore() storage.IdentityStore {
	return db.identities
}

func (db *Database) PostStore() storage.PostStore {
	return db.posts
}

func (db *Database) LikeLedger() storage.LikeLedger {
	return db.likes
}

func (db *Database) NotificationStore() storage.NotificationStore {
	return db.notifications
}

// NewBoard creates a board service over this database's stores.
func (db *Database) NewBoard(opts ...board.Option) (*board.Service, error) {
	return board.NewService(db.identities, db.posts, db.likes, db.notifications, opts...)
}
