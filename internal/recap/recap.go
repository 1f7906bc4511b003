// Package recap builds the attendance pivot report: one row per identity,
// one cell per (date, period) column that saw any activity, reconciling
// attendance facts, approved leave and inferred absence.
package recap

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// Cell values besides the attendance statuses.
const (
	CellLeave  = "leave"
	CellAbsent = "absent"
	CellBlank  = ""
)

// Column is one (date, period) slot of the report.
type Column struct {
	Date   time.Time
	Period string
}

// Key identifies the column, e.g. "2024-01-01/subuh".
func (c Column) Key() string {
	return database.FormatDate(c.Date) + "/" + c.Period
}

// Row holds one identity's cells, aligned with Report.Columns.
type Row struct {
	Identity database.Identity
	Cells    []string
	Counts   map[string]int // non-blank cell value -> occurrences
}

// Report is the pivoted recap split by gender.
type Report struct {
	Start       time.Time
	End         time.Time
	ClassFilter string // empty when not filtering
	Columns     []Column
	GroupA      []Row // male
	GroupB      []Row // everyone else
}

// Input is everything Compute needs. Facts and Leaves should already be
// limited to the date range.
type Input struct {
	Start       time.Time
	End         time.Time
	ClassFilter string
	Facts       []database.AttendanceFact
	Leaves      []database.LeaveRequest
	Roster      []database.Identity
	PeriodOrder []string
}

// NormalizeClassFilter maps the "no filter" spellings ("" and "all") to "".
func NormalizeClassFilter(filter string) string {
	filter = strings.TrimSpace(filter)
	if strings.EqualFold(filter, constants.ClassAll) {
		return ""
	}
	return filter
}

// Compute builds the report. It never fails; no activity yields zero columns.
func Compute(in Input) *Report {
	filter := NormalizeClassFilter(in.ClassFilter)
	report := &Report{Start: in.Start, End: in.End, ClassFilter: filter}

	facts := in.Facts
	leaves := in.Leaves
	if filter != "" {
		facts = slices.DeleteFunc(slices.Clone(facts), func(f database.AttendanceFact) bool { return f.ClassTag != filter })
		leaves = slices.DeleteFunc(slices.Clone(leaves), func(l database.LeaveRequest) bool { return l.ClassTag != filter })
	}

	// columns with any fact or leave request
	columnSet := make(map[string]Column)
	for _, f := range facts {
		c := Column{Date: database.DateOnly(f.Date), Period: f.Period}
		columnSet[c.Key()] = c
	}
	for _, l := range leaves {
		c := Column{Date: database.DateOnly(l.Date), Period: l.Period}
		columnSet[c.Key()] = c
	}
	for _, c := range columnSet {
		report.Columns = append(report.Columns, c)
	}
	sortColumns(report.Columns, in.PeriodOrder)

	// classes that held a session per column
	sessions := make(map[string]map[string]bool)
	// latest fact per identity and column
	statuses := make(map[string]database.AttendanceFact)
	active := make(map[int64]bool)
	for _, f := range facts {
		col := Column{Date: database.DateOnly(f.Date), Period: f.Period}.Key()
		if sessions[col] == nil {
			sessions[col] = make(map[string]bool)
		}
		sessions[col][f.ClassTag] = true

		key := cellKey(f.IdentityID, col)
		if prev, ok := statuses[key]; !ok || f.RecordedAt.After(prev.RecordedAt) {
			statuses[key] = f
		}
		active[f.IdentityID] = true
	}

	approved := make(map[string]bool)
	for _, l := range leaves {
		col := Column{Date: database.DateOnly(l.Date), Period: l.Period}.Key()
		if l.Status == database.LeaveApproved {
			approved[cellKey(l.IdentityID, col)] = true
		}
		active[l.IdentityID] = true
	}

	roster := slices.Clone(in.Roster)
	if filter != "" {
		roster = slices.DeleteFunc(roster, func(i database.Identity) bool { return !active[i.ID] })
	}
	database.SortIdentities(roster)

	for _, identity := range roster {
		row := Row{
			Identity: identity,
			Cells:    make([]string, len(report.Columns)),
			Counts:   make(map[string]int),
		}
		for i, c := range report.Columns {
			cell := resolveCell(identity, c.Key(), filter, statuses, approved, sessions)
			row.Cells[i] = cell
			if cell != CellBlank {
				row.Counts[cell]++
			}
		}

		if identity.Gender == database.GenderMale {
			report.GroupA = append(report.GroupA, row)
		} else {
			report.GroupB = append(report.GroupB, row)
		}
	}

	return report
}

func resolveCell(
	identity database.Identity,
	col, filter string,
	statuses map[string]database.AttendanceFact,
	approved map[string]bool,
	sessions map[string]map[string]bool,
) string {
	key := cellKey(identity.ID, col)
	if f, ok := statuses[key]; ok {
		return string(f.Status)
	}
	if approved[key] {
		return CellLeave
	}
	for _, tag := range identity.ClassTags {
		if filter != "" && tag != filter {
			continue
		}
		if sessions[col][tag] {
			return CellAbsent
		}
	}
	return CellBlank
}

func cellKey(identityID int64, col string) string {
	return fmt.Sprintf("%d|%s", identityID, col)
}

// sortColumns orders by date, then by the position of the period in order.
// Periods missing from order come last, alphabetically.
func sortColumns(cols []Column, order []string) {
	rank := func(p string) int {
		if i := slices.Index(order, p); i >= 0 {
			return i
		}
		return len(order)
	}
	slices.SortFunc(cols, func(a, b Column) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := rank(a.Period) - rank(b.Period); c != 0 {
			return c
		}
		return strings.Compare(a.Period, b.Period)
	})
}
