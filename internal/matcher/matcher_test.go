package matcher

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestCandidates_SkipsMalformed(t *testing.T) {
	enrolled := []database.EnrolledFace{
		{IdentityID: 1, Embedding: []float32{0.1, 0.2, 0.3}},
		{IdentityID: 2, Embedding: []float32{0.1, 0.2}},
		{IdentityID: 3, Malformed: errors.New("invalid json")},
		{IdentityID: 4, Embedding: []float32{0.1, float32(math.NaN()), 0.3}},
		{IdentityID: 5, Embedding: []float32{0.1, float32(math.Inf(1)), 0.3}},
		{IdentityID: 6, Embedding: []float32{0.4, 0.5, 0.6}},
	}

	got := Candidates(enrolled, 3)

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].IdentityID)
	assert.Equal(t, int64(6), got[1].IdentityID)
}

func TestNearestNeighbor_ExactMatch(t *testing.T) {
	candidates := []Candidate{
		{IdentityID: 10, Embedding: []float32{0.1, 0.2, 0.3}},
		{IdentityID: 20, Embedding: []float32{0.9, 0.8, 0.7}},
		{IdentityID: 30, Embedding: []float32{-0.5, 0.0, 0.5}},
	}
	nn := &NearestNeighbor{Tolerance: 0.5}

	for _, c := range candidates {
		res, err := nn.Match(c.Embedding, candidates)
		require.NoError(t, err)
		assert.Equal(t, c.IdentityID, res.IdentityID)
		assert.Zero(t, res.Confidence)
		assert.Equal(t, "nearest", res.Strategy)
	}
}

func TestNearestNeighbor_OutsideTolerance(t *testing.T) {
	candidates := []Candidate{
		{IdentityID: 1, Embedding: []float32{0, 0}},
		{IdentityID: 2, Embedding: []float32{3, 3}},
	}
	nn := &NearestNeighbor{Tolerance: 0.5}

	_, err := nn.Match([]float32{1.5, 1.5}, candidates)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestNearestNeighbor_DistanceEqualToTolerance(t *testing.T) {
	candidates := []Candidate{{IdentityID: 1, Embedding: []float32{0, 0}}}
	nn := &NearestNeighbor{Tolerance: 0.5}

	_, err := nn.Match([]float32{0.5, 0}, candidates)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestNearestNeighbor_TieKeepsFirst(t *testing.T) {
	candidates := []Candidate{
		{IdentityID: 7, Embedding: []float32{1, 0}},
		{IdentityID: 3, Embedding: []float32{0, 1}},
	}
	nn := &NearestNeighbor{Tolerance: 2}

	res, err := nn.Match([]float32{0, 0}, candidates)
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.IdentityID)
	assert.InDelta(t, 1.0, res.Confidence, 1e-6)
}

func TestNearestNeighbor_NoCandidates(t *testing.T) {
	nn := &NearestNeighbor{Tolerance: 0.5}

	_, err := nn.Match([]float32{0, 0}, nil)
	assert.ErrorIs(t, err, ErrNoEnrollmentData)
}

func TestNearestNeighbor_ProbeDimension(t *testing.T) {
	nn := &NearestNeighbor{Tolerance: 0.5}
	candidates := []Candidate{{IdentityID: 1, Embedding: []float32{0, 0, 0}}}

	_, err := nn.Match([]float32{0, 0}, candidates)
	assert.ErrorIs(t, err, ErrProbeDimension)
}

func TestMatch_NonFiniteInput(t *testing.T) {
	candidates := []Candidate{
		{IdentityID: 1, Embedding: []float32{0, 0}},
		{IdentityID: 2, Embedding: []float32{1, 1}},
	}
	inputs := map[string][]float32{
		"nan": {float32(math.NaN()), 0},
		"inf": {0, float32(math.Inf(-1))},
	}
	strategies := []Strategy{&NearestNeighbor{Tolerance: 0.5}, newTestClassifier()}

	for name, input := range inputs {
		for _, s := range strategies {
			t.Run(name+"/"+s.Name(), func(t *testing.T) {
				_, err := s.Match(input, candidates)
				assert.ErrorIs(t, err, ErrNonFiniteInput)
			})
		}
	}
}

func newTestClassifier() *Classifier {
	return &Classifier{MinProbability: 0.6, Epochs: 300, LearningRate: 0.5, L2: 0.001}
}

func clusteredCandidates() []Candidate {
	return []Candidate{
		{IdentityID: 1, Embedding: []float32{1, 0, 0, 0}},
		{IdentityID: 1, Embedding: []float32{0.9, 0.1, 0, 0}},
		{IdentityID: 2, Embedding: []float32{0, 0, 1, 0}},
		{IdentityID: 2, Embedding: []float32{0, 0, 0.9, 0.1}},
	}
}

func TestClassifier_PredictsEnrolledIdentity(t *testing.T) {
	c := newTestClassifier()
	candidates := clusteredCandidates()

	res, err := c.Match([]float32{1, 0, 0, 0}, candidates)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.IdentityID)
	assert.Greater(t, res.Confidence, 0.6)
	assert.Equal(t, "classifier", res.Strategy)

	res, err = c.Match([]float32{0, 0, 1, 0}, candidates)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.IdentityID)
}

func TestClassifier_Deterministic(t *testing.T) {
	c := newTestClassifier()
	candidates := clusteredCandidates()
	probe := []float32{0.8, 0.1, 0.1, 0}

	first, err := c.Match(probe, candidates)
	require.NoError(t, err)
	second, err := c.Match(probe, candidates)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestClassifier_LowConfidence(t *testing.T) {
	c := newTestClassifier()
	candidates := []Candidate{
		{IdentityID: 1, Embedding: []float32{1, 0}},
		{IdentityID: 2, Embedding: []float32{-1, 0}},
	}

	// equidistant probe scores both classes at 0.5
	_, err := c.Match([]float32{0, 0}, candidates)
	assert.ErrorIs(t, err, ErrLowConfidence)
}

func TestClassifier_InsufficientEnrollment(t *testing.T) {
	c := newTestClassifier()
	candidates := []Candidate{
		{IdentityID: 1, Embedding: []float32{1, 0}},
		{IdentityID: 1, Embedding: []float32{0.9, 0.1}},
	}

	_, err := c.Match([]float32{1, 0}, candidates)
	assert.ErrorIs(t, err, ErrInsufficientEnrollment)
}

func TestClassifier_NoEnrollment(t *testing.T) {
	_, err := newTestClassifier().Match([]float32{1, 0}, nil)
	assert.ErrorIs(t, err, ErrNoEnrollmentData)
}

func TestNew(t *testing.T) {
	tests := []struct {
		strategy string
		wantName string
		wantErr  bool
	}{
		{config.StrategyNearest, "nearest", false},
		{config.StrategyClassifier, "classifier", false},
		{"svm", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.strategy, func(t *testing.T) {
			s, err := New(config.MatcherConfig{Strategy: tc.strategy, Tolerance: 0.5, MinProbability: 0.6})
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, s.Name())
		})
	}
}

// randomRoster builds n identities with one standard-normal embedding each.
func randomRoster(n, dim int) []Candidate {
	rng := rand.New(rand.NewPCG(42, uint64(n)))
	out := make([]Candidate, n)
	for i := range out {
		emb := make([]float32, dim)
		for j := range emb {
			emb[j] = float32(rng.NormFloat64())
		}
		out[i] = Candidate{IdentityID: int64(i + 1), Embedding: emb}
	}
	return out
}

func TestClassifier_LargeRosterAcceptsEnrolledEmbeddings(t *testing.T) {
	for _, n := range []int{120, 300} {
		candidates := randomRoster(n, 128)
		c := &Classifier{MinProbability: 0.6}

		for _, cand := range candidates {
			res, err := c.Match(cand.Embedding, candidates)
			require.NoError(t, err, "roster %d identity %d", n, cand.IdentityID)
			assert.Equal(t, cand.IdentityID, res.IdentityID)
			assert.Greater(t, res.Confidence, 0.6)
		}
	}
}

func TestClassifier_ReusesModelUntilCandidatesChange(t *testing.T) {
	c := &Classifier{MinProbability: 0.6}
	candidates := randomRoster(200, 128)

	_, err := c.Match(candidates[0].Embedding, candidates)
	require.NoError(t, err)
	first := c.model
	require.NotNil(t, first)
	// well-separated rosters converge without running the full epoch budget
	assert.Less(t, first.epochs, 10)

	_, err = c.Match(candidates[1].Embedding, randomRoster(200, 128))
	require.NoError(t, err)
	assert.Same(t, first, c.model)

	changed := randomRoster(200, 128)
	changed[5].Embedding[0] += 0.25
	res, err := c.Match(changed[5].Embedding, changed)
	require.NoError(t, err)
	assert.NotSame(t, first, c.model)
	assert.Equal(t, int64(6), res.IdentityID)

	extra := append(randomRoster(200, 128), Candidate{IdentityID: 999, Embedding: randomRoster(201, 128)[200].Embedding})
	res, err = c.Match(extra[200].Embedding, extra)
	require.NoError(t, err)
	assert.Equal(t, int64(999), res.IdentityID)
	assert.Len(t, c.model.classes, 201)
}
