package recap

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// ErrInvalidRange is returned when the end date precedes the start date.
var ErrInvalidRange = errors.New("end date is before start date")

// Store is the read-only storage the engine needs.
type Store interface {
	ListIdentities(ctx context.Context) ([]database.Identity, error)
	ListAttendance(ctx context.Context, filter database.RangeFilter) ([]database.AttendanceFact, error)
	ListLeaves(ctx context.Context, filter database.RangeFilter) ([]database.LeaveRequest, error)
}

// Query selects the recap range and optional class.
type Query struct {
	Start       time.Time
	End         time.Time
	ClassFilter string // "" or "all" = every class
}

// Engine loads recap data from storage and computes the report.
type Engine struct {
	store       Store
	periodOrder []string
}

func NewEngine(store Store, periodOrder []string) *Engine {
	return &Engine{store: store, periodOrder: periodOrder}
}

// Build computes the recap for q. Both range ends are inclusive.
func (e *Engine) Build(ctx context.Context, q Query) (*Report, error) {
	start := database.DateOnly(q.Start)
	end := database.DateOnly(q.End)
	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	filter := database.RangeFilter{Start: start, End: end, ClassTag: NormalizeClassFilter(q.ClassFilter)}

	facts, err := e.store.ListAttendance(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "failed to load attendance")
	}
	leaves, err := e.store.ListLeaves(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "failed to load leave requests")
	}
	roster, err := e.store.ListIdentities(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "failed to load roster")
	}

	report := Compute(Input{
		Start:       start,
		End:         end,
		ClassFilter: filter.ClassTag,
		Facts:       facts,
		Leaves:      leaves,
		Roster:      roster,
		PeriodOrder: e.periodOrder,
	})
	zap.L().Debug("recap built",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.String("class", filter.ClassTag),
		zap.Int("columns", len(report.Columns)),
		zap.Int("rows", len(report.GroupA)+len(report.GroupB)),
	)
	return report, nil
}
