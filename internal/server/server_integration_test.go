package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/helmetscan/internal/pipeline"
	"github.com/ayusman/helmetscan/internal/region"
	"github.com/ayusman/helmetscan/internal/server/api"
	"github.com/ayusman/helmetscan/internal/store"
)

// stubDetector returns the same result for every upload.
type stubDetector struct {
	result *pipeline.Result
}

func (d *stubDetector) Run(ctx context.Context, raw []byte) (*pipeline.Result, error) {
	return d.result, nil
}

func annotatedJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 2), G: uint8(y * 3), B: 64, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func newStubDetector(t *testing.T) *stubDetector {
	return &stubDetector{result: &pipeline.Result{
		PrimaryLabel:      "head",
		PrimaryConfidence: 0.71,
		AnnotatedImage:    annotatedJPEG(t),
		CandidateBoxes:    []region.Box{{XMin: 5, YMin: 5, XMax: 45, YMax: 45}},
		Detections: []pipeline.Detection{
			{Box: region.Box{XMin: 5, YMin: 5, XMax: 45, YMax: 45}, Label: "head", Confidence: 0.8, Pass: pipeline.PassCluster},
			{Box: region.Box{XMin: 0, YMin: 0, XMax: 40, YMax: 40}, Label: "head", Confidence: 0.75, Pass: pipeline.PassWindow},
		},
		Width:  120,
		Height: 80,
	}}
}

func postImage(t *testing.T, client *http.Client, url, filename string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write([]byte("image bytes"))
	mw.Close()

	resp, err := client.Post(url+"/api/detect", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /api/detect error = %v", err)
	}
	return resp
}

func TestAPI_DetectionWorkflow(t *testing.T) {
	// Setup
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	srv := New(Config{Store: s, Detector: newStubDetector(t), ModelName: "stub"})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Upload an image
	resp := postImage(t, client, ts.URL, "gate.jpg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var detected struct {
		PredictedClass string `json:"predicted_class"`
		RunID          string `json:"run_id"`
	}
	json.NewDecoder(resp.Body).Decode(&detected)
	resp.Body.Close()

	if detected.PredictedClass != "head" {
		t.Errorf("predicted_class = %s, want head", detected.PredictedClass)
	}
	if detected.RunID == "" {
		t.Fatal("expected run_id")
	}

	// 2. List runs
	resp, _ = client.Get(ts.URL + "/api/runs")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/runs status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var listed struct {
		Runs []struct {
			ID       string `json:"id"`
			Filename string `json:"filename"`
		} `json:"runs"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Runs) != 1 || listed.Runs[0].ID != detected.RunID || listed.Runs[0].Filename != "gate.jpg" {
		t.Fatalf("unexpected runs %+v", listed.Runs)
	}

	// 3. Fetch the thumbnail
	resp, _ = client.Get(ts.URL + "/api/runs/" + detected.RunID + "/image")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET image status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if _, err := jpeg.Decode(resp.Body); err != nil {
		t.Errorf("thumbnail is not a JPEG: %v", err)
	}
	resp.Body.Close()

	// 4. Overlaps between the passes
	resp, _ = client.Get(ts.URL + "/api/runs/" + detected.RunID + "/overlaps")
	var overlaps struct {
		Overlaps []struct {
			IoU float64 `json:"iou"`
		} `json:"overlaps"`
	}
	json.NewDecoder(resp.Body).Decode(&overlaps)
	resp.Body.Close()

	if len(overlaps.Overlaps) != 1 || overlaps.Overlaps[0].IoU <= 0 {
		t.Errorf("unexpected overlaps %+v", overlaps.Overlaps)
	}

	// 5. Delete the run
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/runs/"+detected.RunID, nil)
	resp, _ = client.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	// 6. Verify it is gone
	resp, _ = client.Get(ts.URL + "/api/runs/" + detected.RunID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestEventHub_BroadcastsRuns(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	srv := New(Config{Store: s, Detector: newStubDetector(t)})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial events: %v", err)
	}
	defer conn.Close()

	// Wait for the hub to register the client
	deadline := time.Now().Add(2 * time.Second)
	for srv.Events().Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp := postImage(t, ts.Client(), ts.URL, "gate.jpg")
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event api.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}

	if event.Type != api.EventRunCompleted {
		t.Errorf("event type = %s, want %s", event.Type, api.EventRunCompleted)
	}
	if event.Run == nil || event.RunID == "" {
		t.Fatalf("event should carry the run: %+v", event)
	}
}

func TestEventHub_PublishWithoutClients(t *testing.T) {
	hub := NewEventHub("*")
	hub.Publish(api.Event{Type: api.EventRunDeleted, RunID: "x"})

	if hub.Clients() != 0 {
		t.Errorf("expected no clients, got %d", hub.Clients())
	}
}

func TestEventHub_SlowClientDoesNotBlockPublish(t *testing.T) {
	hub := NewEventHub("*")

	// A client that never drains its queue.
	stalled := &eventClient{send: make(chan []byte, 1)}
	stalled.send <- []byte("{}")
	ready := &eventClient{send: make(chan []byte, sendBuffer)}

	hub.mu.Lock()
	hub.clients[stalled] = true
	hub.clients[ready] = true
	hub.mu.Unlock()

	done := make(chan struct{})
	go func() {
		hub.Publish(api.Event{Type: api.EventRunDeleted, RunID: "run-1"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a stalled client")
	}

	if hub.Clients() != 1 {
		t.Errorf("expected the stalled client to be dropped, got %d clients", hub.Clients())
	}

	select {
	case msg := <-ready.send:
		var event api.Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("failed to decode queued event: %v", err)
		}
		if event.RunID != "run-1" {
			t.Errorf("event run_id = %s, want run-1", event.RunID)
		}
	default:
		t.Error("expected an event queued for the ready client")
	}

	// The stalled client's queue is closed after its pending message.
	<-stalled.send
	if _, open := <-stalled.send; open {
		t.Error("expected the stalled client's queue to be closed")
	}
}
