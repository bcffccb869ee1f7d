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


// Package board ties the stores together into the bulletin-board flows.
//
// The Service type implements the behavior that spans more than one store:
//   - Registration with the shibboleth dedup screen
//   - Posting with the near-duplicate warning and force flow
//   - Likes, appends, threads, and ranked search
//   - Notification fan-out for replies, likes, and mentions
//
// Notifications are written asynchronously on a worker pool; their failures
// are logged and never fail the call that triggered them.
package board
