package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultEmbeddingURL = "http://localhost:8000"
	defaultTimeout      = 30 * time.Second
)

// FaceClient detects faces and computes their embeddings using the embedding server
type FaceClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter // nil = unlimited
}

// Option configures a FaceClient.
type Option func(*FaceClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *FaceClient) {
		c.client = hc
	}
}

// WithRateLimit caps requests per second to the embedding server.
// A non-positive rps leaves the client unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *FaceClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// NewFaceClient creates a new face client
func NewFaceClient(baseURL string, opts ...Option) *FaceClient {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	c := &FaceClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
// The part carries an explicit Content-Type header based on magic byte detection.
func (c *FaceClient) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "embedding rate limit")
		}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create form file")
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, eris.Wrap(err, "failed to write image data")
	}

	if err := writer.Close(); err != nil {
		return nil, eris.Wrap(err, "failed to close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	return "application/octet-stream"
}

// DetectAndEmbed detects faces in the image and returns one entry per face in
// the order reported by the server. An empty slice means no face was found.
func (c *FaceClient) DetectAndEmbed(ctx context.Context, imageData []byte) ([]Face, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, eris.Wrap(err, "failed to parse response")
	}

	faces := make([]Face, 0, len(faceResp.Faces))
	for _, f := range faceResp.Faces {
		faces = append(faces, Face{
			Embedding: f.Embedding,
			BBox:      f.BBox,
			DetScore:  f.DetScore,
		})
	}
	return faces, nil
}
