package attendance

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/imageutil"
)

// Enrollment is the result of storing a face for an identity.
type Enrollment struct {
	Identity *database.Identity
	BBox     []float64
	Faces    int // faces detected in the image; only the first is stored
}

// CreateIdentity adds a new identity to the roster.
func (s *Service) CreateIdentity(ctx context.Context, identity *database.Identity) error {
	identity.ExternalID = strings.TrimSpace(identity.ExternalID)
	identity.Name = strings.TrimSpace(identity.Name)
	identity.Gender = strings.ToLower(strings.TrimSpace(identity.Gender))
	if identity.ExternalID == "" || identity.Name == "" {
		return ErrInvalidIdentity
	}
	if !database.ValidGender(identity.Gender) {
		return fmt.Errorf("%w: gender must be %q or %q, got %q",
			ErrInvalidIdentity, database.GenderMale, database.GenderFemale, identity.Gender)
	}

	existing, err := s.store.GetIdentityByExternalID(ctx, identity.ExternalID)
	if err != nil {
		return eris.Wrap(err, "failed to look up identity")
	}
	if existing != nil {
		return database.ErrDuplicateIdentity
	}

	var tags []string
	for _, tag := range identity.ClassTags {
		tag = strings.TrimSpace(tag)
		if IsEnrollableClass(tag) && !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	identity.ClassTags = tags
	identity.Enrolled = false
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}

	if err := s.store.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, database.ErrDuplicateIdentity) {
			return err
		}
		return eris.Wrap(err, "failed to create identity")
	}
	zap.L().Info("identity created",
		zap.Int64("identity_id", identity.ID),
		zap.String("external_id", identity.ExternalID),
	)
	return nil
}

// EnrollFace detects the face in image and stores its embedding for the
// identity, replacing any previous one.
func (s *Service) EnrollFace(ctx context.Context, identityID int64, image []byte) (*Enrollment, error) {
	identity, err := s.store.GetIdentity(ctx, identityID)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load identity %d", identityID)
	}
	if identity == nil {
		return nil, ErrIdentityNotFound
	}

	prepared, err := imageutil.Prepare(image, s.maxImageSize)
	if err != nil {
		return nil, err
	}

	faces, err := s.extractor.DetectAndEmbed(ctx, prepared.Data)
	if err != nil {
		return nil, eris.Wrap(err, "face detection failed")
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	face := faces[0]
	if len(face.Embedding) != s.embeddingDim {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrEmbeddingDimension, len(face.Embedding), s.embeddingDim)
	}

	if err := s.store.SaveEmbedding(ctx, identityID, face.Embedding); err != nil {
		return nil, eris.Wrapf(err, "failed to save embedding for identity %d", identityID)
	}
	identity.Enrolled = true

	if len(faces) > 1 {
		zap.L().Warn("multiple faces in enrollment image, using the first",
			zap.Int64("identity_id", identityID),
			zap.Int("faces", len(faces)),
		)
	}
	s.publish(ctx, events.TopicIdentityEnrolled, events.IdentityEnrolled{
		IdentityID: identity.ID,
		ExternalID: identity.ExternalID,
	})

	return &Enrollment{Identity: identity, BBox: face.BBox, Faces: len(faces)}, nil
}

// AssignClass appends tag to the identity's classes unless already present.
// It returns true when the tag was added.
func (s *Service) AssignClass(ctx context.Context, identityID int64, tag string) (bool, error) {
	tag = strings.TrimSpace(tag)
	if !IsEnrollableClass(tag) {
		return false, fmt.Errorf("%w: %q", ErrInvalidClass, tag)
	}

	identity, err := s.store.GetIdentity(ctx, identityID)
	if err != nil {
		return false, eris.Wrapf(err, "failed to load identity %d", identityID)
	}
	if identity == nil {
		return false, ErrIdentityNotFound
	}
	if identity.HasClass(tag) {
		return false, nil
	}

	added, err := s.store.AddClassTag(ctx, identityID, tag)
	if err != nil {
		return false, eris.Wrapf(err, "failed to add class %q to identity %d", tag, identityID)
	}
	return added, nil
}

// ListIdentities returns the roster ordered by normalized name, then ID.
func (s *Service) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	identities, err := s.store.ListIdentities(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "failed to list identities")
	}
	database.SortIdentities(identities)
	return identities, nil
}
