package matcher

import "errors"

var (
	// ErrNoEnrollmentData is returned when no usable enrolled embedding exists.
	ErrNoEnrollmentData = errors.New("no enrolled face data")

	// ErrInsufficientEnrollment is returned by the classifier when fewer than
	// two distinct identities are enrolled.
	ErrInsufficientEnrollment = errors.New("not enough enrolled identities to train a classifier")

	// ErrLowConfidence is returned when the best class probability is below the minimum.
	ErrLowConfidence = errors.New("match confidence too low")

	// ErrNoMatch is returned when the nearest enrolled face is outside the tolerance.
	ErrNoMatch = errors.New("no enrolled face within tolerance")

	// ErrMalformedEmbedding marks an enrolled embedding that cannot take part in matching.
	ErrMalformedEmbedding = errors.New("malformed embedding")

	// ErrProbeDimension is returned when the probe length differs from the configured dimension.
	ErrProbeDimension = errors.New("probe embedding has unexpected length")

	// ErrNonFiniteInput is returned when the embedding to match contains NaN or Inf.
	ErrNonFiniteInput = errors.New("input embedding contains non-finite values")
)
