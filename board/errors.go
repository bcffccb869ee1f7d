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


package board

import "errors"

var (
	// ErrIdentityStoreRequired indicates that no identity store was provided.
	ErrIdentityStoreRequired = errors.New("identity store is required")

	// ErrPostStoreRequired indicates that no post store was provided.
	ErrPostStoreRequired = errors.New("post store is required")

	// ErrLikeLedgerRequired indicates that no like ledger was provided.
	ErrLikeLedgerRequired = errors.New("like ledger is required")

	// ErrNotificationStoreRequired indicates that no notification store was provided.
	ErrNotificationStoreRequired = errors.New("notification store is required")

	// ErrAuthorNotRegistered indicates the author's public key is unknown.
	ErrAuthorNotRegistered = errors.New("author is not registered")

	// ErrAuthorNotApproved indicates the author has not been approved yet.
	ErrAuthorNotApproved = errors.New("author is not approved")

	// ErrParentNotFound indicates a reply references a post that doesn't exist.
	ErrParentNotFound = errors.New("parent post not found")
)
