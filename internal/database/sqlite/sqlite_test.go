package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := database.ParseDate(s)
	require.NoError(t, err)
	return d
}

func createIdentity(t *testing.T, st *Store, externalID string) *database.Identity {
	t.Helper()
	i := &database.Identity{ExternalID: externalID, Name: "Student " + externalID, Gender: database.GenderMale, CreatedAt: time.Now()}
	require.NoError(t, st.CreateIdentity(context.Background(), i))
	return i
}

func TestSQLite_Identity_CreateAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	i := &database.Identity{ExternalID: "S-1", Name: "Ahmad", Gender: database.GenderMale, ClassTags: []string{"7A"}}
	require.NoError(t, st.CreateIdentity(ctx, i))
	assert.NotZero(t, i.ID)

	got, err := st.GetIdentity(ctx, i.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ahmad", got.Name)
	assert.Equal(t, []string{"7A"}, got.ClassTags)
	assert.False(t, got.Enrolled)

	byExt, err := st.GetIdentityByExternalID(ctx, "S-1")
	require.NoError(t, err)
	require.NotNil(t, byExt)
	assert.Equal(t, i.ID, byExt.ID)
}

func TestSQLite_Identity_Missing(t *testing.T) {
	st := newTestStore(t)

	got, err := st.GetIdentity(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Identity_Duplicate(t *testing.T) {
	st := newTestStore(t)
	createIdentity(t, st, "S-1")

	err := st.CreateIdentity(context.Background(), &database.Identity{ExternalID: "S-1", Name: "Again"})
	assert.ErrorIs(t, err, database.ErrDuplicateIdentity)
}

func TestSQLite_ListIdentities(t *testing.T) {
	st := newTestStore(t)
	a := createIdentity(t, st, "S-1")
	b := createIdentity(t, st, "S-2")

	list, err := st.ListIdentities(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
}

func TestSQLite_Embedding_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	i := createIdentity(t, st, "S-1")

	require.NoError(t, st.SaveEmbedding(ctx, i.ID, []float32{0.25, -0.5, 1}))

	enrolled, err := st.ListEnrolled(ctx)
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.NoError(t, enrolled[0].Malformed)
	assert.Equal(t, []float32{0.25, -0.5, 1}, enrolled[0].Embedding)

	got, err := st.GetIdentity(ctx, i.ID)
	require.NoError(t, err)
	assert.True(t, got.Enrolled)
}

func TestSQLite_Embedding_Malformed(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	good := createIdentity(t, st, "S-1")
	bad := createIdentity(t, st, "S-2")

	require.NoError(t, st.SaveEmbedding(ctx, good.ID, []float32{1, 2}))
	_, err := st.db.ExecContext(ctx, `UPDATE identities SET embedding = 'not-json' WHERE id = ?`, bad.ID)
	require.NoError(t, err)

	enrolled, err := st.ListEnrolled(ctx)
	require.NoError(t, err)
	require.Len(t, enrolled, 2)
	assert.NoError(t, enrolled[0].Malformed)
	assert.Error(t, enrolled[1].Malformed)
	assert.Nil(t, enrolled[1].Embedding)
}

func TestSQLite_SaveEmbedding_Missing(t *testing.T) {
	st := newTestStore(t)

	err := st.SaveEmbedding(context.Background(), 99, []float32{1})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSQLite_AddClassTag(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	i := createIdentity(t, st, "S-1")

	added, err := st.AddClassTag(ctx, i.ID, "7A")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = st.AddClassTag(ctx, i.ID, "7A")
	require.NoError(t, err)
	assert.False(t, added)

	added, err = st.AddClassTag(ctx, i.ID, "Tahfidz")
	require.NoError(t, err)
	assert.True(t, added)

	got, err := st.GetIdentity(ctx, i.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"7A", "Tahfidz"}, got.ClassTags)
}

func newFact(identityID int64, d time.Time, period, class string, status database.AttendanceStatus) *database.AttendanceFact {
	return &database.AttendanceFact{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Date:       d,
		Period:     period,
		ClassTag:   class,
		Status:     status,
		RecordedAt: time.Now(),
		RecordedBy: "tester",
	}
}

func TestSQLite_UpsertAttendance_Overwrites(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	i := createIdentity(t, st, "S-1")
	d := date(t, "2024-03-01")

	first := newFact(i.ID, d, "subuh", "7A", database.StatusPresent)
	require.NoError(t, st.UpsertAttendance(ctx, first))
	firstID := first.ID

	second := newFact(i.ID, d, "subuh", "7A", database.StatusLate3)
	require.NoError(t, st.UpsertAttendance(ctx, second))
	assert.Equal(t, firstID, second.ID)

	facts, err := st.ListAttendance(ctx, database.RangeFilter{})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, database.StatusLate3, facts[0].Status)
	assert.True(t, facts[0].Date.Equal(d))
}

func TestSQLite_ListAttendance_Filter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := createIdentity(t, st, "S-1")
	b := createIdentity(t, st, "S-2")

	require.NoError(t, st.UpsertAttendance(ctx, newFact(a.ID, date(t, "2024-03-01"), "subuh", "7A", database.StatusPresent)))
	require.NoError(t, st.UpsertAttendance(ctx, newFact(a.ID, date(t, "2024-03-01"), "subuh", "Tahfidz", database.StatusPresent)))
	require.NoError(t, st.UpsertAttendance(ctx, newFact(b.ID, date(t, "2024-03-02"), "malam", "7A", database.StatusLate1)))
	require.NoError(t, st.UpsertAttendance(ctx, newFact(b.ID, date(t, "2024-03-09"), "malam", "7A", database.StatusLate1)))

	tests := []struct {
		name   string
		filter database.RangeFilter
		want   int
	}{
		{"all", database.RangeFilter{}, 4},
		{"range", database.RangeFilter{Start: date(t, "2024-03-01"), End: date(t, "2024-03-02")}, 3},
		{"class", database.RangeFilter{ClassTag: "7A"}, 3},
		{"identity", database.RangeFilter{IdentityID: a.ID}, 2},
		{"class and range", database.RangeFilter{ClassTag: "7A", End: date(t, "2024-03-02")}, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			facts, err := st.ListAttendance(ctx, tc.filter)
			require.NoError(t, err)
			assert.Len(t, facts, tc.want)
		})
	}
}

func newLeave(identityID int64, d time.Time) *database.LeaveRequest {
	now := time.Now()
	return &database.LeaveRequest{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Date:       d,
		Period:     "sore",
		ClassTag:   "7A",
		Reason:     "family event",
		Status:     database.LeavePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestSQLite_Leave_Lifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	i := createIdentity(t, st, "S-1")

	leave := newLeave(i.ID, date(t, "2024-03-04"))
	require.NoError(t, st.CreateLeave(ctx, leave))

	got, err := st.GetLeave(ctx, leave.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "family event", got.Reason)
	assert.Equal(t, database.LeavePending, got.Status)

	require.NoError(t, st.UpdateLeaveStatus(ctx, leave.ID, database.LeaveApproved, "ok"))

	got, err = st.GetLeave(ctx, leave.ID)
	require.NoError(t, err)
	assert.Equal(t, database.LeaveApproved, got.Status)
	assert.Equal(t, "ok", got.Note)

	approved, err := st.ListLeaves(ctx, database.RangeFilter{Status: database.LeaveApproved})
	require.NoError(t, err)
	assert.Len(t, approved, 1)

	pending, err := st.ListLeaves(ctx, database.RangeFilter{Status: database.LeavePending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSQLite_Leave_Duplicate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	i := createIdentity(t, st, "S-1")
	d := date(t, "2024-03-04")

	require.NoError(t, st.CreateLeave(ctx, newLeave(i.ID, d)))
	err := st.CreateLeave(ctx, newLeave(i.ID, d))
	assert.ErrorIs(t, err, database.ErrDuplicateLeaveRequest)
}

func TestSQLite_Leave_Missing(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	got, err := st.GetLeave(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = st.UpdateLeaveStatus(ctx, "nope", database.LeaveRejected, "")
	assert.ErrorIs(t, err, database.ErrNotFound)
}
