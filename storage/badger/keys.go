package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/bulletin/core"
)

// Key prefixes for different data types
const (
	identityPrefix     = "idrec"
	identityNamePrefix = "idname"
	identityAddrPrefix = "idaddr"
	postPrefix         = "postrec"
	postDatePrefix     = "postdate"
	postParentPrefix   = "postpar"
	likePrefix         = "likerec"
	notifPrefix        = "notrec"
	notifUserPrefix    = "notuser"
)

// makeIdentityKey generates a key for an identity record by public key.
func makeIdentityKey(publicKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s", identityPrefix, publicKey))
}

// makeIdentityNameKey generates a key for the display-name lookup index.
func makeIdentityNameKey(displayName string) []byte {
	return []byte(fmt.Sprintf("%s:%s", identityNamePrefix, displayName))
}

// makeIdentityAddrKey generates a key for the network-address lookup index.
func makeIdentityAddrKey(networkAddress string) []byte {
	return []byte(fmt.Sprintf("%s:%s", identityAddrPrefix, networkAddress))
}

// makePostKey generates a key for a post record by ID.
func makePostKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", postPrefix, id))
}

// makePostDateKey generates a composite key for the date index.
// Format: prefix:timestamp:idDigest
// Post IDs are variable length, so the composite embeds a fixed-width digest
// of the ID rather than the ID itself; the index value carries the full ID.
func makePostDateKey(timestamp time.Time, id string) []byte {
	prefix := postDatePrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], core.KeyDigest(id))
	return buf
}

// makePartialPostDateKey generates a partial key for date-ordered walks.
// Format: prefix:timestamp
func makePartialPostDateKey(timestamp time.Time) []byte {
	prefix := postDatePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makePostParentKey generates a composite key for the parent index.
// Format: prefix:parentDigest:timestamp:idDigest
// Keys under one parent digest sort chronologically.
func makePostParentKey(parentID string, timestamp time.Time, id string) []byte {
	prefix := postParentPrefix + ":"
	buf := make([]byte, len(prefix)+24)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], core.KeyDigest(parentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], core.KeyDigest(id))
	return buf
}

// makePartialPostParentKey generates a partial key for reply queries.
// Format: prefix:parentDigest
func makePartialPostParentKey(parentID string) []byte {
	prefix := postParentPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], core.KeyDigest(parentID))
	return buf
}

// makeLikeKey generates a key for a like ledger entry.
// Format: prefix:postDigest:userDigest
func makeLikeKey(postID, userKey string) []byte {
	prefix := likePrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], core.KeyDigest(postID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], core.KeyDigest(userKey))
	return buf
}

// makeNotificationKey generates a key for a notification record by ID.
func makeNotificationKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", notifPrefix, id))
}

// makeNotificationUserKey generates a composite key for the per-user index.
// Format: prefix:userDigest:timestamp:idDigest
func makeNotificationUserKey(userKey string, timestamp time.Time, id string) []byte {
	prefix := notifUserPrefix + ":"
	buf := make([]byte, len(prefix)+24)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], core.KeyDigest(userKey))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], core.KeyDigest(id))
	return buf
}

// makePartialNotificationUserKey generates a partial key for per-user queries.
// Format: prefix:userDigest
func makePartialNotificationUserKey(userKey string) []byte {
	prefix := notifUserPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], core.KeyDigest(userKey))
	return buf
}
