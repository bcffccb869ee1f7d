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


package storage

import (
	"github.com/poiesic/bulletin/core"
)

// MarshalIdentity serializes an Identity to bytes.
func MarshalIdentity(identity *core.Identity) []byte {
	buf := make([]byte, core.IdentityMUS.Size(*identity))
	core.IdentityMUS.Marshal(*identity, buf)
	return buf
}

// UnmarshalIdentity deserializes an Identity from bytes.
func UnmarshalIdentity(data []byte) (*core.Identity, error) {
	identity, _, err := core.IdentityMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// MarshalPost serializes a Post to bytes.
func MarshalPost(post *core.Post) []byte {
	buf := make([]byte, core.PostMUS.Size(*post))
	core.PostMUS.Marshal(*post, buf)
	return buf
}

// UnmarshalPost deserializes a Post from bytes.
func UnmarshalPost(data []byte) (*core.Post, error) {
	post, _, err := core.PostMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// MarshalLike serializes a Like to bytes.
func MarshalLike(like *core.Like) []byte {
	buf := make([]byte, core.LikeMUS.Size(*like))
	core.LikeMUS.Marshal(*like, buf)
	return buf
}

// UnmarshalLike deserializes a Like from bytes.
func UnmarshalLike(data []byte) (*core.Like, error) {
	like, _, err := core.LikeMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// MarshalNotification serializes a Notification to bytes.
func MarshalNotification(notification *core.Notification) []byte {
	buf := make([]byte, core.NotificationMUS.Size(*notification))
	core.NotificationMUS.Marshal(*notification, buf)
	return buf
}

// UnmarshalNotification deserializes a Notification from bytes.
func UnmarshalNotification(data []byte) (*core.Notification, error) {
	notification, _, err := core.NotificationMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &notification, nil
}
