package matcher

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Candidate is one enrolled embedding eligible for matching.
type Candidate struct {
	IdentityID int64
	Embedding  []float32
}

// Candidates converts stored embeddings into the candidate set for one
// matching pass. Records that failed to decode, have a length other than
// dim or contain NaN/Inf are logged and left out.
func Candidates(enrolled []database.EnrolledFace, dim int) []Candidate {
	out := make([]Candidate, 0, len(enrolled))
	for _, face := range enrolled {
		if err := validateEmbedding(face, dim); err != nil {
			zap.L().Warn("skipping enrolled embedding",
				zap.Int64("identity_id", face.IdentityID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, Candidate{IdentityID: face.IdentityID, Embedding: face.Embedding})
	}
	return out
}

func validateEmbedding(face database.EnrolledFace, dim int) error {
	if face.Malformed != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEmbedding, face.Malformed)
	}
	if len(face.Embedding) != dim {
		return fmt.Errorf("%w: length %d, expected %d", ErrMalformedEmbedding, len(face.Embedding), dim)
	}
	for _, v := range face.Embedding {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite value", ErrMalformedEmbedding)
		}
	}
	return nil
}

// checkProbe rejects probes that cannot be compared with the candidates.
func checkProbe(probe []float32, candidates []Candidate) error {
	if len(candidates) == 0 {
		return ErrNoEnrollmentData
	}
	if want := len(candidates[0].Embedding); len(probe) != want {
		return fmt.Errorf("%w: got %d, expected %d", ErrProbeDimension, len(probe), want)
	}
	for _, v := range probe {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ErrNonFiniteInput
		}
	}
	return nil
}
