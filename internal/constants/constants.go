// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultTolerance is the default maximum Euclidean distance for a
	// nearest-neighbor match. Lower values = stricter matching
	DefaultTolerance = 0.5

	// DefaultMinProbability is the minimum classifier probability accepted as a match
	DefaultMinProbability = 0.6

	// DefaultEmbeddingDim is the length of the face descriptors produced by the extractor
	DefaultEmbeddingDim = 128

	// MinClassifierIdentities is the minimum number of enrolled identities
	// needed to train the one-vs-rest classifier
	MinClassifierIdentities = 2
)

// Classifier training constants
const (
	// DefaultClassifierEpochs is the number of full-batch gradient steps per class
	DefaultClassifierEpochs = 300

	// DefaultClassifierLearningRate is the gradient descent step size
	DefaultClassifierLearningRate = 0.5

	// DefaultClassifierL2 pulls the weights toward their class-centroid start
	DefaultClassifierL2 = 0.001

	// ClassifierGradientTolerance ends training once no gradient component exceeds it
	ClassifierGradientTolerance = 1e-4
)

// Attendance session constants
const (
	// DefaultSessionTTL bounds the lifetime of an open attendance session
	DefaultSessionTTL = time.Hour

	// LateTier1Minutes is the upper bound (inclusive) of the first lateness tier
	LateTier1Minutes = 5.0

	// LateTier2Minutes is the upper bound (inclusive) of the second lateness tier
	LateTier2Minutes = 15.0
)

// Class tag sentinels that never trigger class auto-enrollment
const (
	ClassUnknown = "unknown"
	ClassAll     = "all"
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for bulk enrollment
	WorkerPoolSize = 4

	// MaxImageSize is the maximum dimension (width or height) for image processing
	MaxImageSize = 1280

	// MaxUploadBytes caps the size of a posted capture or enrollment image
	MaxUploadBytes = 10 << 20
)
