package matcher

import (
	"github.com/rotisserie/eris"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// Result is an accepted identity decision.
type Result struct {
	IdentityID int64
	// Confidence is the Euclidean distance for the nearest-neighbour
	// strategy (lower is better) and the class probability for the
	// classifier (higher is better).
	Confidence float64
	Strategy   string
}

// Strategy decides which candidate identity a probe embedding belongs to.
// Implementations are safe for concurrent use and every call matches against
// the candidates it is given.
type Strategy interface {
	Name() string
	Match(probe []float32, candidates []Candidate) (*Result, error)
}

// New builds the strategy selected by configuration.
func New(cfg config.MatcherConfig) (Strategy, error) {
	switch cfg.Strategy {
	case config.StrategyNearest:
		return &NearestNeighbor{Tolerance: cfg.Tolerance}, nil
	case config.StrategyClassifier:
		return &Classifier{
			MinProbability: cfg.MinProbability,
			Epochs:         cfg.Epochs,
			LearningRate:   cfg.LearningRate,
			L2:             cfg.L2,
		}, nil
	default:
		return nil, eris.Errorf("unknown matcher strategy %q", cfg.Strategy)
	}
}
