package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/facebox"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
	"github.com/kozaktomas/face-attendance/internal/imageutil"
	"github.com/kozaktomas/face-attendance/internal/matcher"
)

// Extractor detects faces in an image and returns their embeddings.
type Extractor interface {
	DetectAndEmbed(ctx context.Context, image []byte) ([]fingerprint.Face, error)
}

// Options holds the collaborators of a Service.
type Options struct {
	Store        database.Store
	Sessions     *SessionManager
	Matcher      matcher.Strategy
	Extractor    Extractor
	Publisher    events.Publisher // nil disables events
	Periods      config.PeriodsConfig
	EmbeddingDim int
	MaxImageSize int
}

// Service exposes session control, recognition and roster management.
type Service struct {
	store        database.Store
	sessions     *SessionManager
	recorder     *Recorder
	matcher      matcher.Strategy
	extractor    Extractor
	publisher    events.Publisher
	periods      config.PeriodsConfig
	embeddingDim int
	maxImageSize int
}

func NewService(opts Options) *Service {
	publisher := opts.Publisher
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	dim := opts.EmbeddingDim
	if dim <= 0 {
		dim = constants.DefaultEmbeddingDim
	}
	maxSize := opts.MaxImageSize
	if maxSize <= 0 {
		maxSize = constants.MaxImageSize
	}
	return &Service{
		store:        opts.Store,
		sessions:     opts.Sessions,
		recorder:     NewRecorder(opts.Store, opts.Sessions),
		matcher:      opts.Matcher,
		extractor:    opts.Extractor,
		publisher:    publisher,
		periods:      opts.Periods,
		embeddingDim: dim,
		maxImageSize: maxSize,
	}
}

// Recognition is the result of a successful RecognizeAndRecord.
type Recognition struct {
	Identity     *database.Identity
	Fact         *database.AttendanceFact
	BBox         []float64 // pixels of the prepared image
	RelativeBBox []float64 // 0-1 relative to the prepared image
	Confidence   float64
	Strategy     string
	ClassAdded   bool
}

// StartSession opens attendance for date and period, replacing any open session.
func (s *Service) StartSession(ctx context.Context, date time.Time, period string) (Session, error) {
	if len(s.periods.Periods) > 0 && !s.periods.Valid(period) {
		return Session{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	session := s.sessions.Open(date, period)
	zap.L().Info("attendance session opened",
		zap.String("date", database.FormatDate(session.Date)),
		zap.String("period", session.Period),
		zap.Time("expires_at", session.ExpiresAt),
	)
	s.publish(ctx, events.TopicSessionOpened, sessionEvent(session))
	return session, nil
}

// StartLateCounting starts (or restarts) the late window of the open session.
func (s *Service) StartLateCounting(ctx context.Context) (Session, error) {
	session, err := s.sessions.StartLateCounting()
	if err != nil {
		return Session{}, err
	}
	zap.L().Info("late counting started", zap.Time("late_started_at", *session.LateStartedAt))
	s.publish(ctx, events.TopicLateCounting, sessionEvent(session))
	return session, nil
}

// EndSession closes attendance.
func (s *Service) EndSession(ctx context.Context) {
	s.sessions.Close()
	zap.L().Info("attendance session closed")
	s.publish(ctx, events.TopicSessionClosed, events.SessionChanged{})
}

// CurrentSession returns the open session, if any.
func (s *Service) CurrentSession() (Session, bool) {
	return s.sessions.Current()
}

// RecognizeAndRecord identifies the first face in image and records attendance
// for it in the open session under classTag.
func (s *Service) RecognizeAndRecord(ctx context.Context, image []byte, classTag, recordedBy string) (*Recognition, error) {
	// refuse early so an idle station does not hit the extractor
	if _, ok := s.sessions.Current(); !ok {
		return nil, ErrSessionNotOpen
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

	enrolled, err := s.store.ListEnrolled(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "failed to load enrolled faces")
	}
	candidates := matcher.Candidates(enrolled, s.embeddingDim)

	result, err := s.matcher.Match(face.Embedding, candidates)
	if err != nil {
		logMatchFailure(err, len(candidates))
		return nil, err
	}

	recorded, err := s.recorder.Record(ctx, result.IdentityID, classTag, recordedBy)
	if err != nil {
		return nil, err
	}

	fact := recorded.Fact
	zap.L().Info("attendance recorded",
		zap.Int64("identity_id", fact.IdentityID),
		zap.String("period", fact.Period),
		zap.String("class", fact.ClassTag),
		zap.String("status", string(fact.Status)),
		zap.Float64("confidence", result.Confidence),
	)
	s.publish(ctx, events.TopicFactRecorded, events.FactRecorded{
		FactID:     fact.ID,
		IdentityID: fact.IdentityID,
		Name:       recorded.Identity.Name,
		Date:       database.FormatDate(fact.Date),
		Period:     fact.Period,
		ClassTag:   fact.ClassTag,
		Status:     string(fact.Status),
		RecordedAt: fact.RecordedAt,
		RecordedBy: fact.RecordedBy,
	})

	return &Recognition{
		Identity:     recorded.Identity,
		Fact:         fact,
		BBox:         face.BBox,
		RelativeBBox: facebox.Relative(face.BBox, prepared.Width, prepared.Height),
		Confidence:   result.Confidence,
		Strategy:     result.Strategy,
		ClassAdded:   recorded.ClassAdded,
	}, nil
}

func logMatchFailure(err error, candidates int) {
	switch {
	case errors.Is(err, matcher.ErrNoMatch), errors.Is(err, matcher.ErrLowConfidence):
		zap.L().Info("face not recognized", zap.Error(err), zap.Int("candidates", candidates))
	default:
		zap.L().Warn("matching failed", zap.Error(err), zap.Int("candidates", candidates))
	}
}

// publish emits an event; failures are logged and never returned.
func (s *Service) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		zap.L().Warn("failed to publish event", zap.String("topic", topic), zap.Error(err))
	}
}

func sessionEvent(session Session) events.SessionChanged {
	opened := session.OpenedAt
	return events.SessionChanged{
		Date:          database.FormatDate(session.Date),
		Period:        session.Period,
		OpenedAt:      &opened,
		LateStartedAt: session.LateStartedAt,
	}
}
