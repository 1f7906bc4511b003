package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/export"
	"github.com/kozaktomas/face-attendance/internal/recap"
)

// RecapHandler serves attendance recaps as JSON and XLSX.
type RecapHandler struct {
	engine       *recap.Engine
	periodLabels map[string]string
}

func NewRecapHandler(engine *recap.Engine, periods config.PeriodsConfig) *RecapHandler {
	return &RecapHandler{engine: engine, periodLabels: periods.Labels()}
}

type recapColumn struct {
	Key    string `json:"key"`
	Date   string `json:"date"`
	Period string `json:"period"`
}

type recapRow struct {
	Identity IdentityResponse `json:"identity"`
	Cells    []string         `json:"cells"`
	Counts   map[string]int   `json:"counts"`
}

// RecapResponse is the JSON form of a recap report.
type RecapResponse struct {
	Start   string        `json:"start"`
	End     string        `json:"end"`
	Class   string        `json:"class,omitempty"`
	Columns []recapColumn `json:"columns"`
	Male    []recapRow    `json:"male"`
	Female  []recapRow    `json:"female"`
}

func recapRows(rows []recap.Row) []recapRow {
	out := make([]recapRow, 0, len(rows))
	for i := range rows {
		out = append(out, recapRow{
			Identity: identityResponse(&rows[i].Identity),
			Cells:    rows[i].Cells,
			Counts:   rows[i].Counts,
		})
	}
	return out
}

func (h *RecapHandler) build(w http.ResponseWriter, r *http.Request) (*recap.Report, bool) {
	q := r.URL.Query()
	start, okStart := parseDateParam(q.Get("start"))
	end, okEnd := parseDateParam(q.Get("end"))
	if !okStart || !okEnd || start.IsZero() || end.IsZero() {
		respondError(w, http.StatusBadRequest, "start and end are required as YYYY-MM-DD")
		return nil, false
	}

	report, err := h.engine.Build(r.Context(), recap.Query{Start: start, End: end, ClassFilter: q.Get("class")})
	if err != nil {
		respondDomainError(w, r, err)
		return nil, false
	}
	return report, true
}

// Get returns the recap as JSON.
func (h *RecapHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, ok := h.build(w, r)
	if !ok {
		return
	}

	columns := make([]recapColumn, 0, len(report.Columns))
	for _, c := range report.Columns {
		columns = append(columns, recapColumn{Key: c.Key(), Date: database.FormatDate(c.Date), Period: c.Period})
	}
	respondJSON(w, http.StatusOK, RecapResponse{
		Start:   database.FormatDate(report.Start),
		End:     database.FormatDate(report.End),
		Class:   report.ClassFilter,
		Columns: columns,
		Male:    recapRows(report.GroupA),
		Female:  recapRows(report.GroupB),
	})
}

// Export returns the recap as an XLSX download.
func (h *RecapHandler) Export(w http.ResponseWriter, r *http.Request) {
	report, ok := h.build(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteRecapXLSX(&buf, report, h.periodLabels); err != nil {
		respondDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(report)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zap.L().Warn("failed to write recap export", zap.Error(err))
	}
}
