package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/imageutil"
)

// defaultRecordedBy is stored when the station does not identify itself.
const defaultRecordedBy = "station"

// RecognizeHandler handles frames posted by capture stations.
type RecognizeHandler struct {
	service *attendance.Service
}

func NewRecognizeHandler(service *attendance.Service) *RecognizeHandler {
	return &RecognizeHandler{service: service}
}

type recognizeRequest struct {
	Image      string `json:"image"` // data URL or bare base64
	Class      string `json:"class"`
	RecordedBy string `json:"recorded_by"`
}

// IdentityResponse is the JSON form of a roster entry.
type IdentityResponse struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	Gender     string    `json:"gender"`
	Classes    []string  `json:"classes"`
	Enrolled   bool      `json:"enrolled"`
	CreatedAt  time.Time `json:"created_at"`
}

func identityResponse(i *database.Identity) IdentityResponse {
	classes := i.ClassTags
	if classes == nil {
		classes = []string{}
	}
	return IdentityResponse{
		ID:         i.ID,
		ExternalID: i.ExternalID,
		Name:       i.Name,
		Gender:     i.Gender,
		Classes:    classes,
		Enrolled:   i.Enrolled,
		CreatedAt:  i.CreatedAt,
	}
}

// RecognizeResponse describes a recorded recognition.
type RecognizeResponse struct {
	Identity      IdentityResponse `json:"identity"`
	FactID        string           `json:"fact_id"`
	Date          string           `json:"date"`
	Period        string           `json:"period"`
	Class         string           `json:"class"`
	Status        string           `json:"status"`
	RecordedAt    time.Time        `json:"recorded_at"`
	BBox          []float64        `json:"bbox"`
	BBoxRel       []float64        `json:"bbox_rel"`
	Confidence    float64          `json:"confidence"`
	Strategy      string           `json:"strategy"`
	ClassEnrolled bool             `json:"class_enrolled"`
}

// Recognize identifies the face in the posted frame and records attendance.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	image, err := imageutil.DecodeDataURL(req.Image)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	recordedBy := req.RecordedBy
	if recordedBy == "" {
		recordedBy = defaultRecordedBy
	}

	result, err := h.service.RecognizeAndRecord(r.Context(), image, req.Class, recordedBy)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	fact := result.Fact
	respondJSON(w, http.StatusOK, RecognizeResponse{
		Identity:      identityResponse(result.Identity),
		FactID:        fact.ID,
		Date:          database.FormatDate(fact.Date),
		Period:        fact.Period,
		Class:         fact.ClassTag,
		Status:        string(fact.Status),
		RecordedAt:    fact.RecordedAt,
		BBox:          result.BBox,
		BBoxRel:       result.RelativeBBox,
		Confidence:    result.Confidence,
		Strategy:      result.Strategy,
		ClassEnrolled: result.ClassAdded,
	})
}
