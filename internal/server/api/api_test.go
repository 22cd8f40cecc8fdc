package api

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ayusman/helmetscan/internal/pipeline"
	"github.com/ayusman/helmetscan/internal/region"
	"github.com/ayusman/helmetscan/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// fakeDetector returns a canned result or error and records its input.
type fakeDetector struct {
	mu     sync.Mutex
	result *pipeline.Result
	err    error
	inputs [][]byte
}

func (d *fakeDetector) Run(ctx context.Context, raw []byte) (*pipeline.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputs = append(d.inputs, raw)
	if d.err != nil {
		return nil, d.err
	}
	return d.result, nil
}

func (d *fakeDetector) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inputs)
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) all() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// testJPEG encodes a small gradient image.
func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// sampleResult builds a pipeline result with one candidate, one cluster
// detection and two window detections, one overlapping the cluster box.
func sampleResult(t *testing.T) *pipeline.Result {
	t.Helper()

	return &pipeline.Result{
		PrimaryLabelID:    1,
		PrimaryLabel:      "helmet",
		PrimaryConfidence: 0.83,
		AnnotatedImage:    testJPEG(t, 200, 100),
		CandidateBoxes:    []region.Box{{XMin: 10, YMin: 10, XMax: 60, YMax: 60}},
		Detections: []pipeline.Detection{
			{Box: region.Box{XMin: 10, YMin: 10, XMax: 60, YMax: 60}, LabelID: 1, Label: "helmet", Confidence: 0.9, Pass: pipeline.PassCluster},
			{Box: region.Box{XMin: 25, YMin: 25, XMax: 75, YMax: 75}, LabelID: 0, Label: "head", Confidence: 0.8, Pass: pipeline.PassWindow},
			{Box: region.Box{XMin: 150, YMin: 50, XMax: 200, YMax: 100}, LabelID: 1, Label: "helmet", Confidence: 0.75, Pass: pipeline.PassWindow},
		},
		Width:  200,
		Height: 100,
	}
}

// uploadRequest builds a multipart POST with a single file part.
func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write(data)
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/detect", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
