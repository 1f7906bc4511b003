package matcher

import (
	"fmt"
	"math"

	"github.com/coder/hnsw"
)

// NearestNeighbor accepts the closest candidate when its Euclidean distance
// is strictly below Tolerance.
type NearestNeighbor struct {
	Tolerance float64
}

func (n *NearestNeighbor) Name() string { return "nearest" }

func (n *NearestNeighbor) Match(probe []float32, candidates []Candidate) (*Result, error) {
	if err := checkProbe(probe, candidates); err != nil {
		return nil, err
	}

	best := -1
	bestDistance := math.Inf(1)
	for i, c := range candidates {
		if len(c.Embedding) != len(probe) {
			continue
		}
		d := float64(hnsw.EuclideanDistance(probe, c.Embedding))
		// strict comparison keeps the earliest candidate on ties
		if d < bestDistance {
			best = i
			bestDistance = d
		}
	}

	if best < 0 {
		return nil, ErrNoEnrollmentData
	}
	if bestDistance >= n.Tolerance {
		return nil, fmt.Errorf("%w: best distance %.4f", ErrNoMatch, bestDistance)
	}

	return &Result{
		IdentityID: candidates[best].IdentityID,
		Confidence: bestDistance,
		Strategy:   n.Name(),
	}, nil
}
