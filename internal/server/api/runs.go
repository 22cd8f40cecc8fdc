package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/helmetscan/internal/pipeline"
	"github.com/ayusman/helmetscan/internal/store"
)

// RunsHandler handles HTTP requests for stored runs.
type RunsHandler struct {
	store     *store.Store
	publisher Publisher
}

// NewRunsHandler creates a new RunsHandler. publisher may be nil.
func NewRunsHandler(s *store.Store, publisher Publisher) *RunsHandler {
	return &RunsHandler{store: s, publisher: publisher}
}

type listRunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

type overlapResponse struct {
	Cluster detectionResponse `json:"cluster"`
	Window  detectionResponse `json:"window"`
	IoU     float64           `json:"iou"`
}

type overlapsResponse struct {
	RunID    string            `json:"run_id"`
	Overlaps []overlapResponse `json:"overlaps"`
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/runs, /api/runs/{id}, /api/runs/{id}/image,
	// /api/runs/{id}/overlaps
	path := strings.TrimPrefix(r.URL.Path, "/api/runs")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, id)
		case http.MethodDelete:
			h.delete(w, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "image":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.image(w, id)
	case "overlaps":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.overlaps(w, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// list handles GET /api/runs and returns the most recent runs.
func (h *RunsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.store.Runs().List(limit)
	if err != nil {
		log.Errorf("Failed to list runs: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	response := listRunsResponse{
		Runs: make([]RunResponse, 0, len(runs)),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/runs/{id}.
func (h *RunsHandler) get(w http.ResponseWriter, id string) {
	run, ok := h.load(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run))
}

// delete handles DELETE /api/runs/{id}.
func (h *RunsHandler) delete(w http.ResponseWriter, id string) {
	err := h.store.Runs().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete run")
		return
	}

	if h.publisher != nil {
		h.publisher.Publish(Event{Type: EventRunDeleted, RunID: id})
	}

	w.WriteHeader(http.StatusNoContent)
}

// image handles GET /api/runs/{id}/image and returns the JPEG thumbnail.
func (h *RunsHandler) image(w http.ResponseWriter, id string) {
	thumb, err := h.store.Runs().Thumbnail(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Image not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load image")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(thumb)))
	w.WriteHeader(http.StatusOK)
	w.Write(thumb)
}

// overlaps handles GET /api/runs/{id}/overlaps and lists cluster and window
// detections of the run that cover the same area.
func (h *RunsHandler) overlaps(w http.ResponseWriter, id string) {
	run, ok := h.load(w, id)
	if !ok {
		return
	}

	detections := storedDetections(run)
	responses := toDetectionResponses(detections)

	response := overlapsResponse{
		RunID:    run.ID,
		Overlaps: []overlapResponse{},
	}
	for _, o := range pipeline.Overlaps(detections) {
		response.Overlaps = append(response.Overlaps, overlapResponse{
			Cluster: responses[o.Cluster],
			Window:  responses[o.Window],
			IoU:     o.IoU,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *RunsHandler) load(w http.ResponseWriter, id string) (*store.Run, bool) {
	run, err := h.store.Runs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return nil, false
	}
	return run, true
}
