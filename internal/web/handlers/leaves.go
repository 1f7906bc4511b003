package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/leave"
)

// LeavesHandler handles leave requests.
type LeavesHandler struct {
	service *leave.Service
}

func NewLeavesHandler(service *leave.Service) *LeavesHandler {
	return &LeavesHandler{service: service}
}

type createLeaveRequest struct {
	IdentityID  int64  `json:"identity_id"`
	Date        string `json:"date"`
	Period      string `json:"period"`
	Class       string `json:"class"`
	Reason      string `json:"reason"`
	PreApproved bool   `json:"pre_approved"`
}

type reviewLeaveRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// LeaveResponse is the JSON form of a leave request.
type LeaveResponse struct {
	ID         string    `json:"id"`
	IdentityID int64     `json:"identity_id"`
	Date       string    `json:"date"`
	Period     string    `json:"period"`
	Class      string    `json:"class"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func leaveResponse(l *database.LeaveRequest) LeaveResponse {
	return LeaveResponse{
		ID:         l.ID,
		IdentityID: l.IdentityID,
		Date:       database.FormatDate(l.Date),
		Period:     l.Period,
		Class:      l.ClassTag,
		Reason:     l.Reason,
		Status:     string(l.Status),
		Note:       l.Note,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}

// Create submits a leave request.
func (h *LeavesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLeaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, ok := parseDateParam(req.Date)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	lr := &database.LeaveRequest{
		IdentityID: req.IdentityID,
		Date:       date,
		Period:     req.Period,
		ClassTag:   req.Class,
		Reason:     req.Reason,
	}
	if err := h.service.Create(r.Context(), lr, req.PreApproved); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, leaveResponse(lr))
}

// List returns leave requests filtered by status, date range, class and identity.
func (h *LeavesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, okStart := parseDateParam(q.Get("start"))
	end, okEnd := parseDateParam(q.Get("end"))
	if !okStart || !okEnd {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	filter := database.RangeFilter{
		Start:    start,
		End:      end,
		ClassTag: q.Get("class"),
		Status:   database.LeaveStatus(q.Get("status")),
	}
	if v := q.Get("identity_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid identity_id")
			return
		}
		filter.IdentityID = id
	}

	leaves, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]LeaveResponse, 0, len(leaves))
	for i := range leaves {
		out = append(out, leaveResponse(&leaves[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// Review approves or rejects a request.
func (h *LeavesHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req reviewLeaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lr, err := h.service.Review(r.Context(), chi.URLParam(r, "id"), database.LeaveStatus(req.Status), req.Note)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, leaveResponse(lr))
}
