package attendance

import "errors"

var (
	// ErrSessionNotOpen is returned when no attendance session is open or the
	// open session has expired. Staff must open attendance before capture.
	ErrSessionNotOpen = errors.New("attendance session is not open")

	// ErrNoFaceDetected is returned when the extractor finds no face in the image.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrIdentityNotFound is returned when the referenced identity does not exist.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrInvalidPeriod is returned when a session is opened for an unknown period.
	ErrInvalidPeriod = errors.New("unknown period")

	// ErrEmbeddingDimension is returned when the extractor returns an embedding
	// of unexpected length during enrollment.
	ErrEmbeddingDimension = errors.New("face embedding has unexpected length")

	// ErrInvalidClass is returned when a sentinel is used as a class name.
	ErrInvalidClass = errors.New("invalid class tag")

	// ErrInvalidIdentity is returned when a new identity lacks a name or external ID.
	ErrInvalidIdentity = errors.New("identity requires an external ID and a name")
)
