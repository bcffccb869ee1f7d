// Package rank scores and orders posts. Everything here is a pure function
// of its inputs; callers pass the clock explicitly so results are
// reproducible.
package rank

import (
	"math"
	"sort"
	"time"

	"github.com/poiesic/bulletin/core"
)

// Weights controls the blend of signals in WeightedRank.
type Weights struct {
	Semantic      float64
	Likes         float64
	Recency       float64
	HalflifeHours float64
}

// DefaultWeights returns the standard blend: similarity dominates, likes are
// a moderate boost, recency is a light tiebreaker with a 24-hour half-life.
func DefaultWeights() Weights {
	return Weights{
		Semantic:      1.0,
		Likes:         0.3,
		Recency:       0.1,
		HalflifeHours: 24,
	}
}

// WeightedRank re-orders scored posts by a blend of semantic similarity,
// like count, and recency:
//
//	score = sim*wSem + (likes/maxLikes)*wLikes + 0.5^(hours/halflife)*wRec
//
// Likes are normalized against the highest count in the batch, so the likes
// signal is relative to the candidates at hand, not an absolute scale. When
// no candidate has likes the normalizer becomes 1 and the term contributes
// zero for everyone. A non-positive half-life falls back to the default so
// caller-built weights can't produce NaN scores. The sort is stable:
// candidates with equal scores keep their incoming order. The input slice is
// not modified.
func WeightedRank(items []*core.ScoredPost, w Weights, now time.Time) []*core.ScoredPost {
	if len(items) == 0 {
		return nil
	}

	halflife := w.HalflifeHours
	if halflife <= 0 {
		halflife = DefaultWeights().HalflifeHours
	}

	var maxLikes int64
	for _, item := range items {
		if item.Post.Likes > maxLikes {
			maxLikes = item.Post.Likes
		}
	}
	if maxLikes == 0 {
		maxLikes = 1
	}

	ranked := make([]*core.ScoredPost, len(items))
	scores := make([]float64, len(items))
	for i, item := range items {
		ranked[i] = item

		hours := now.Sub(item.Post.Timestamp).Hours()
		if hours < 0 {
			hours = 0
		}
		recency := math.Pow(0.5, hours/halflife)

		scores[i] = item.Similarity*w.Semantic +
			float64(item.Post.Likes)/float64(maxLikes)*w.Likes +
			recency*w.Recency
	}

	order := make([]int, len(ranked))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	out := make([]*core.ScoredPost, len(ranked))
	for i, idx := range order {
		out[i] = ranked[idx]
	}
	return out
}

// HotPost pairs a thread with its hotness score.
type HotPost struct {
	Post    *core.Post
	Replies int
	Hotness float64
}

// HotRank orders top-level posts by hotness:
//
//	(likes + 2*replies) / (hours + 2)^1.5
//
// Replies weigh double because they signal engagement more strongly than a
// like. Age is floored at 0.1 hours so brand-new posts don't divide by a
// near-zero denominator. Hottest first; ties keep incoming order.
func HotRank(items []*core.ThreadPost, now time.Time) []*HotPost {
	out := make([]*HotPost, 0, len(items))
	for _, item := range items {
		if item.Post.IsReply() {
			continue
		}

		hours := now.Sub(item.Post.Timestamp).Hours()
		if hours < 0.1 {
			hours = 0.1
		}

		score := (float64(item.Post.Likes) + 2*float64(item.ReplyCount)) /
			math.Pow(hours+2, 1.5)

		out = append(out, &HotPost{
			Post:    item.Post,
			Replies: item.ReplyCount,
			Hotness: score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Hotness > out[j].Hotness
	})
	return out
}
