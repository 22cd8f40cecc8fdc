// Package api provides HTTP API handlers for the helmetscan detection service.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/helmetscan/internal/pipeline"
	"github.com/ayusman/helmetscan/internal/region"
	"github.com/ayusman/helmetscan/internal/store"
)

// Publisher receives events about runs. The WebSocket hub implements it.
type Publisher interface {
	Publish(event Event)
}

// Event types sent to publishers.
const (
	EventRunCompleted = "run.completed"
	EventRunDeleted   = "run.deleted"
)

// Event is a notification about a run.
type Event struct {
	Type  string       `json:"type"`
	RunID string       `json:"run_id"`
	Run   *RunResponse `json:"run,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type detectionResponse struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Pass       string     `json:"pass"`
	Box        [4]float64 `json:"box"`
}

// RunResponse is the JSON view of a run.
type RunResponse struct {
	ID             string              `json:"id"`
	Filename       string              `json:"filename"`
	PredictedClass string              `json:"predicted_class"`
	Confidence     float64             `json:"confidence"`
	Width          int                 `json:"width"`
	Height         int                 `json:"height"`
	BoundingBoxes  [][4]float64        `json:"bounding_boxes,omitempty"`
	Detections     []detectionResponse `json:"detections,omitempty"`
	CreatedAt      string              `json:"created_at"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func boxArrays(boxes []region.Box) [][4]float64 {
	out := make([][4]float64, len(boxes))
	for i, b := range boxes {
		out[i] = b.Array()
	}
	return out
}

func toDetectionResponses(detections []pipeline.Detection) []detectionResponse {
	out := make([]detectionResponse, len(detections))
	for i, d := range detections {
		out[i] = detectionResponse{
			Label:      d.Label,
			Confidence: d.Confidence,
			Pass:       string(d.Pass),
			Box:        d.Box.Array(),
		}
	}
	return out
}

// toRun converts a pipeline result into a storable run.
func toRun(id, filename string, result *pipeline.Result, thumbnail []byte) *store.Run {
	run := &store.Run{
		ID:                id,
		Filename:          filename,
		PrimaryLabel:      result.PrimaryLabel,
		PrimaryConfidence: result.PrimaryConfidence,
		Width:             result.Width,
		Height:            result.Height,
		Thumbnail:         thumbnail,
	}

	for _, b := range result.CandidateBoxes {
		run.Boxes = append(run.Boxes, store.RunBox{
			Kind: store.BoxKindCandidate,
			XMin: b.XMin, YMin: b.YMin, XMax: b.XMax, YMax: b.YMax,
		})
	}
	for _, d := range result.Detections {
		kind := store.BoxKindCluster
		if d.Pass == pipeline.PassWindow {
			kind = store.BoxKindWindow
		}
		run.Boxes = append(run.Boxes, store.RunBox{
			Kind:       kind,
			Label:      d.Label,
			Confidence: d.Confidence,
			XMin:       d.Box.XMin,
			YMin:       d.Box.YMin,
			XMax:       d.Box.XMax,
			YMax:       d.Box.YMax,
		})
	}

	return run
}

// storedDetections rebuilds the accepted detections of a stored run.
func storedDetections(run *store.Run) []pipeline.Detection {
	var detections []pipeline.Detection
	for _, b := range run.Boxes {
		var pass pipeline.Pass
		switch b.Kind {
		case store.BoxKindCluster:
			pass = pipeline.PassCluster
		case store.BoxKindWindow:
			pass = pipeline.PassWindow
		default:
			continue
		}
		detections = append(detections, pipeline.Detection{
			Box:        region.Box{XMin: b.XMin, YMin: b.YMin, XMax: b.XMax, YMax: b.YMax},
			Label:      b.Label,
			Confidence: b.Confidence,
			Pass:       pass,
		})
	}
	return detections
}

// toRunResponse converts a stored run. Boxes are included when loaded.
func toRunResponse(run *store.Run) RunResponse {
	resp := RunResponse{
		ID:             run.ID,
		Filename:       run.Filename,
		PredictedClass: run.PrimaryLabel,
		Confidence:     run.PrimaryConfidence,
		Width:          run.Width,
		Height:         run.Height,
		CreatedAt:      run.CreatedAt.Format(time.RFC3339),
	}

	for _, b := range run.BoxesOf(store.BoxKindCandidate) {
		resp.BoundingBoxes = append(resp.BoundingBoxes, [4]float64{b.XMin, b.YMin, b.XMax, b.YMax})
	}
	if detections := storedDetections(run); len(detections) > 0 {
		resp.Detections = toDetectionResponses(detections)
	}

	return resp
}
