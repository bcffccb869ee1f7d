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


package core

import (
	"fmt"
	"time"
)

// ValidateIdentity validates an Identity according to domain rules.
//
// Validation rules:
//   - PublicKey, DisplayName, and NetworkAddress must not be empty
//   - Shibboleth must not be empty
//   - ShibbolethVector must be present
//   - CreatedAt must not be in the future
//
// NOT validated here:
//   - Vector dimension (the caller validates against the configured
//     embedding dimension before reaching the stores)
//   - Uniqueness (enforced by the identity store at insert time)
func ValidateIdentity(identity *Identity) error {
	if identity == nil {
		return fmt.Errorf("%w: identity is nil", ErrInvalidIdentity)
	}

	if identity.PublicKey == "" {
		return fmt.Errorf("%w: %w", ErrInvalidIdentity, ErrEmptyPublicKey)
	}

	if identity.DisplayName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidIdentity, ErrEmptyDisplayName)
	}

	if identity.NetworkAddress == "" {
		return fmt.Errorf("%w: %w", ErrInvalidIdentity, ErrEmptyNetworkAddress)
	}

	if identity.Shibboleth == "" {
		return fmt.Errorf("%w: %w", ErrInvalidIdentity, ErrEmptyContent)
	}

	if len(identity.ShibbolethVector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidIdentity, ErrEmptyVector)
	}

	if !identity.CreatedAt.IsZero() && !IsValidTimestamp(identity.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidIdentity, ErrInvalidTimestamp)
	}

	return nil
}

// ValidatePost validates a Post according to domain rules.
//
// Validation rules:
//   - ID, AuthorKey, and Content must not be empty
//   - Vector must be present
//   - Timestamp must not be in the future
//
// NOT validated here:
//   - Vector dimension (caller's responsibility)
//   - ParentID referencing an existing post (the store tolerates broken
//     references on read but never creates them; the board layer checks)
func ValidatePost(post *Post) error {
	if post == nil {
		return fmt.Errorf("%w: post is nil", ErrInvalidPost)
	}

	if post.ID == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidPost)
	}

	if post.AuthorKey == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPost, ErrEmptyPublicKey)
	}

	if post.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPost, ErrEmptyContent)
	}

	if len(post.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPost, ErrEmptyVector)
	}

	if !post.Timestamp.IsZero() && !IsValidTimestamp(post.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidPost, ErrInvalidTimestamp)
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
