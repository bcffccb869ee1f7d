package core

import (
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the stored record types. Field order is part of the
// on-disk format and must not change. Vector components use the raw float32
// serializer, which writes the same 4-byte little-endian layout as
// EncodeVector; timestamps are stored as Unix microseconds.

var (
	vectorMUS   mus.Serializer[[]float32]   = ord.NewSliceSer[float32](raw.Float32)
	hashtagsMUS mus.Serializer[[]string]    = ord.NewSliceSer[string](ord.String)
	appendsMUS  mus.Serializer[[]PostAppend] = ord.NewSliceSer[PostAppend](PostAppendMUS)
)

// timeMUS serializes time.Time as Unix microseconds, normalized to UTC.
var timeMUS = timeSer{}

type timeSer struct{}

func (timeSer) Marshal(t time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeSer) Unmarshal(bs []byte) (t time.Time, n int, err error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func (timeSer) Size(t time.Time) (size int) {
	return varint.Int64.Size(t.UnixMicro())
}

func (timeSer) Skip(bs []byte) (n int, err error) {
	return varint.Int64.Skip(bs)
}

// PostAppendMUS serializes a PostAppend.
var PostAppendMUS = postAppendSer{}

type postAppendSer struct{}

func (postAppendSer) Marshal(a PostAppend, bs []byte) (n int) {
	n = timeMUS.Marshal(a.Timestamp, bs)
	n += ord.String.Marshal(a.Content, bs[n:])
	return
}

func (postAppendSer) Unmarshal(bs []byte) (a PostAppend, n int, err error) {
	a.Timestamp, n, err = timeMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	a.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (postAppendSer) Size(a PostAppend) (size int) {
	return timeMUS.Size(a.Timestamp) + ord.String.Size(a.Content)
}

func (postAppendSer) Skip(bs []byte) (n int, err error) {
	n, err = timeMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	return
}

// IdentityMUS serializes an Identity.
var IdentityMUS = identitySer{}

type identitySer struct{}

func (identitySer) Marshal(v Identity, bs []byte) (n int) {
	n = ord.String.Marshal(v.PublicKey, bs)
	n += ord.String.Marshal(v.DisplayName, bs[n:])
	n += ord.String.Marshal(v.NetworkAddress, bs[n:])
	n += timeMUS.Marshal(v.CreatedAt, bs[n:])
	n += ord.String.Marshal(v.Shibboleth, bs[n:])
	n += vectorMUS.Marshal(v.ShibbolethVector, bs[n:])
	n += ord.Bool.Marshal(v.Approved, bs[n:])
	return
}

func (identitySer) Unmarshal(bs []byte) (v Identity, n int, err error) {
	var n1 int
	if v.PublicKey, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.DisplayName, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.NetworkAddress, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CreatedAt, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Shibboleth, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ShibbolethVector, n1, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Approved, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return
}

func (identitySer) Size(v Identity) (size int) {
	size = ord.String.Size(v.PublicKey)
	size += ord.String.Size(v.DisplayName)
	size += ord.String.Size(v.NetworkAddress)
	size += timeMUS.Size(v.CreatedAt)
	size += ord.String.Size(v.Shibboleth)
	size += vectorMUS.Size(v.ShibbolethVector)
	size += ord.Bool.Size(v.Approved)
	return
}

func (s identitySer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// PostMUS serializes a Post.
var PostMUS = postSer{}

type postSer struct{}

func (postSer) Marshal(v Post, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Author, bs[n:])
	n += ord.String.Marshal(v.AuthorKey, bs[n:])
	n += timeMUS.Marshal(v.Timestamp, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += hashtagsMUS.Marshal(v.Hashtags, bs[n:])
	n += varint.Int64.Marshal(v.Likes, bs[n:])
	n += ord.String.Marshal(v.ParentID, bs[n:])
	n += appendsMUS.Marshal(v.Appends, bs[n:])
	return
}

func (postSer) Unmarshal(bs []byte) (v Post, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Author, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.AuthorKey, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Timestamp, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Hashtags, n1, err = hashtagsMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Likes, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ParentID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Appends, n1, err = appendsMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return
}

func (postSer) Size(v Post) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.Author)
	size += ord.String.Size(v.AuthorKey)
	size += timeMUS.Size(v.Timestamp)
	size += ord.String.Size(v.Content)
	size += vectorMUS.Size(v.Vector)
	size += hashtagsMUS.Size(v.Hashtags)
	size += varint.Int64.Size(v.Likes)
	size += ord.String.Size(v.ParentID)
	size += appendsMUS.Size(v.Appends)
	return
}

func (s postSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// LikeMUS serializes a Like.
var LikeMUS = likeSer{}

type likeSer struct{}

func (likeSer) Marshal(v Like, bs []byte) (n int) {
	n = ord.String.Marshal(v.PostID, bs)
	n += ord.String.Marshal(v.UserKey, bs[n:])
	n += timeMUS.Marshal(v.Timestamp, bs[n:])
	return
}

func (likeSer) Unmarshal(bs []byte) (v Like, n int, err error) {
	var n1 int
	if v.PostID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.UserKey, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Timestamp, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return
}

func (likeSer) Size(v Like) (size int) {
	return ord.String.Size(v.PostID) + ord.String.Size(v.UserKey) + timeMUS.Size(v.Timestamp)
}

func (s likeSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// NotificationMUS serializes a Notification.
var NotificationMUS = notificationSer{}

type notificationSer struct{}

func (notificationSer) Marshal(v Notification, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.UserKey, bs[n:])
	n += ord.String.Marshal(string(v.Type), bs[n:])
	n += ord.String.Marshal(v.PostID, bs[n:])
	n += ord.String.Marshal(v.FromUser, bs[n:])
	n += ord.String.Marshal(v.Message, bs[n:])
	n += timeMUS.Marshal(v.Timestamp, bs[n:])
	n += ord.Bool.Marshal(v.Read, bs[n:])
	return
}

func (notificationSer) Unmarshal(bs []byte) (v Notification, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.UserKey, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var typ string
	if typ, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Type = NotificationType(typ)
	n += n1
	if v.PostID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.FromUser, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Message, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Timestamp, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Read, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return
}

func (notificationSer) Size(v Notification) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.UserKey)
	size += ord.String.Size(string(v.Type))
	size += ord.String.Size(v.PostID)
	size += ord.String.Size(v.FromUser)
	size += ord.String.Size(v.Message)
	size += timeMUS.Size(v.Timestamp)
	size += ord.Bool.Size(v.Read)
	return
}

func (s notificationSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
