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
	"errors"
	"fmt"
)

// Vector errors
var (
	// ErrDimension indicates a vector has the wrong number of components
	// for the configured embedding dimension.
	ErrDimension = errors.New("wrong vector dimension")

	// ErrDimensionMismatch indicates two vectors of different lengths were
	// compared. Always surfaced, never retried internally.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrZeroVector indicates a vector with zero norm, for which cosine
	// similarity is undefined. The embedding source should never emit one;
	// callers treat this as a configuration fault.
	ErrZeroVector = errors.New("zero-norm vector")

	// ErrCorruptVector indicates stored vector bytes that cannot be decoded.
	// This is storage corruption, not caller error; scans log and skip the
	// affected record.
	ErrCorruptVector = errors.New("corrupt vector data")
)

// Domain validation errors
var (
	// ErrInvalidIdentity indicates an Identity failed validation.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrInvalidPost indicates a Post failed validation.
	ErrInvalidPost = errors.New("invalid post")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyPublicKey indicates the PublicKey field is empty.
	ErrEmptyPublicKey = errors.New("public key cannot be empty")

	// ErrEmptyDisplayName indicates the DisplayName field is empty.
	ErrEmptyDisplayName = errors.New("display name cannot be empty")

	// ErrEmptyNetworkAddress indicates the NetworkAddress field is empty.
	ErrEmptyNetworkAddress = errors.New("network address cannot be empty")

	// ErrEmptyVector indicates a required embedding vector is missing.
	ErrEmptyVector = errors.New("vector cannot be empty")
)

// DuplicateShibbolethError rejects a registration whose shibboleth vector is
// within the similarity threshold of an existing identity's vector. It is
// advisory: the caller may retry with a different writing sample.
type DuplicateShibbolethError struct {
	PublicKey   string  // identity that matched
	DisplayName string  // display name of the matched identity
	Similarity  float64 // cosine similarity to the matched vector
}

func (e *DuplicateShibbolethError) Error() string {
	return fmt.Sprintf("shibboleth too similar to identity %q (similarity %.2f)",
		e.DisplayName, e.Similarity)
}

// UniquenessViolation reports which identity field collided during an insert.
// The caller must choose new values; resubmitting the same ones will fail
// again.
type UniquenessViolation struct {
	Field string // "public_key", "display_name", or "network_address"
}

func (e *UniquenessViolation) Error() string {
	return fmt.Sprintf("%s already registered", e.Field)
}
