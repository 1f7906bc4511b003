package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
	"github.com/kozaktomas/face-attendance/internal/leave"
	"github.com/kozaktomas/face-attendance/internal/matcher"
	"github.com/kozaktomas/face-attendance/internal/recap"
)

// stubExtractor returns a fixed set of faces for every image
type stubExtractor struct {
	faces []fingerprint.Face
	err   error
}

func (s *stubExtractor) DetectAndEmbed(ctx context.Context, image []byte) ([]fingerprint.Face, error) {
	return s.faces, s.err
}

// testEnv bundles the services behind the handlers
type testEnv struct {
	store      *mock.MockStore
	extractor  *stubExtractor
	attendance *attendance.Service
	leaves     *leave.Service
	recap      *recap.Engine
	periods    config.PeriodsConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	periods, err := config.LoadPeriods()
	if err != nil {
		t.Fatalf("failed to load periods: %v", err)
	}

	store := mock.NewMockStore()
	store.AddIdentity(database.Identity{ID: 1, ExternalID: "S-001", Name: "Ahmad", Gender: database.GenderMale, ClassTags: []string{"7A"}}, []float32{1, 0, 0, 0})
	store.AddIdentity(database.Identity{ID: 2, ExternalID: "S-002", Name: "Siti", Gender: database.GenderFemale, ClassTags: []string{"7A"}}, []float32{0, 1, 0, 0})

	extractor := &stubExtractor{}
	svc := attendance.NewService(attendance.Options{
		Store:        store,
		Sessions:     attendance.NewSessionManager(time.Hour, time.Now),
		Matcher:      &matcher.NearestNeighbor{Tolerance: 0.5},
		Extractor:    extractor,
		Periods:      periods,
		EmbeddingDim: 4,
	})

	return &testEnv{
		store:      store,
		extractor:  extractor,
		attendance: svc,
		leaves:     leave.NewService(store, nil, periods),
		recap:      recap.NewEngine(store, periods.Names()),
		periods:    periods,
	}
}

// faceAt makes the extractor report one face with the given embedding
func (e *testEnv) faceAt(embedding ...float32) {
	e.extractor.faces = []fingerprint.Face{{Embedding: embedding, BBox: []float64{2, 2, 10, 12}, DetScore: 0.99}}
}

// testImageDataURL returns a small gray JPEG as a data URL
func testImageDataURL(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := range 16 {
		for y := range 16 {
			img.Set(x, y, color.Gray{Y: 100})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
