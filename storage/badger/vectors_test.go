package badger

import (
	"math"

	"github.com/poiesic/bulletin/core"
)

// basisVec returns a unit vector along axis i.
func basisVec(i int) []float32 {
	vec := make([]float32, core.DefaultVectorDim)
	vec[i] = 1
	return vec
}

// blendVec returns a unit vector whose cosine similarity against basisVec(i)
// is exactly cos, leaning into axis j for the remainder.
func blendVec(i, j int, cos float64) []float32 {
	vec := make([]float32, core.DefaultVectorDim)
	vec[i] = float32(cos)
	vec[j] = float32(math.Sqrt(1 - cos*cos))
	return vec
}
