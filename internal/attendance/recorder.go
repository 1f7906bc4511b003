package attendance

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// RecorderStore is the storage the recorder needs.
type RecorderStore interface {
	GetIdentity(ctx context.Context, id int64) (*database.Identity, error)
	AddClassTag(ctx context.Context, id int64, tag string) (bool, error)
	UpsertAttendance(ctx context.Context, fact *database.AttendanceFact) error
}

// Recorded is the outcome of one Record call.
type Recorded struct {
	Fact       *database.AttendanceFact
	Identity   *database.Identity
	ClassAdded bool // identity was auto-enrolled into the fact's class
}

// Recorder turns a matched identity and the open session into a stored attendance fact.
type Recorder struct {
	store    RecorderStore
	sessions *SessionManager
}

func NewRecorder(store RecorderStore, sessions *SessionManager) *Recorder {
	return &Recorder{store: store, sessions: sessions}
}

// Record derives the status from the session and upserts the fact keyed by
// (identity, session date, session period, class). A real class tag the
// identity does not carry yet is appended to its class list before the fact
// is written.
func (r *Recorder) Record(ctx context.Context, identityID int64, classTag, recordedBy string) (*Recorded, error) {
	session, ok := r.sessions.Current()
	if !ok {
		return nil, ErrSessionNotOpen
	}
	now := r.sessions.Now()

	identity, err := r.store.GetIdentity(ctx, identityID)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load identity %d", identityID)
	}
	if identity == nil {
		return nil, ErrIdentityNotFound
	}

	classTag = strings.TrimSpace(classTag)
	fact := &database.AttendanceFact{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Date:       session.Date,
		Period:     session.Period,
		ClassTag:   classTag,
		Status:     DeriveStatus(session, now),
		RecordedAt: now,
		RecordedBy: recordedBy,
	}

	// a stored fact always has its class membership in place
	out := &Recorded{Fact: fact, Identity: identity}
	if IsEnrollableClass(classTag) && !identity.HasClass(classTag) {
		added, err := r.store.AddClassTag(ctx, identityID, classTag)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to add class %q to identity %d", classTag, identityID)
		}
		if added {
			identity.ClassTags = append(identity.ClassTags, classTag)
			out.ClassAdded = true
			zap.L().Info("identity joined class",
				zap.Int64("identity_id", identityID),
				zap.String("class", classTag),
			)
		}
	}

	if err := r.store.UpsertAttendance(ctx, fact); err != nil {
		return nil, eris.Wrap(err, "failed to store attendance")
	}
	return out, nil
}

// IsEnrollableClass reports whether tag names a real class rather than a sentinel.
func IsEnrollableClass(tag string) bool {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", constants.ClassUnknown, constants.ClassAll:
		return false
	}
	return true
}
