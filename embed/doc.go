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


// Package embed provides the embedding abstraction used by bulletin tooling.
//
// The board's stores only ever receive precomputed vectors; nothing in the
// storage or board layers calls an embedding service. This package exists for
// the tooling around the store: the CLI embeds seed content and search
// queries before handing the vectors to the board.
//
// # Implementation Packages
//
//   - embed/openai: production implementation using OpenAI-compatible APIs
//   - embed/mock: deterministic test double, also used for offline seeding
//
// Public constructors (openai.NewEmbedder) return the Embedder interface to
// enforce abstraction. Test utility constructors (mock.NewMockEmbedder)
// return concrete types to enable behavior injection and call-count
// assertions.
package embed
