package api

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/helmetscan/internal/pipeline"
	"github.com/ayusman/helmetscan/internal/render"
	"github.com/ayusman/helmetscan/internal/store"
)

// DefaultMaxUploadBytes is the upload limit used when none is configured.
const DefaultMaxUploadBytes = 10 << 20

// Detector runs detection over encoded image bytes. *pipeline.Pipeline
// implements it.
type Detector interface {
	Run(ctx context.Context, raw []byte) (*pipeline.Result, error)
}

// DetectConfig holds the DetectHandler dependencies. Store and Publisher are
// optional.
type DetectConfig struct {
	Detector       Detector
	Store          *store.Store
	Publisher      Publisher
	MaxUploadBytes int64
	ThumbnailSide  int
}

// DetectHandler handles image uploads on POST /api/detect.
type DetectHandler struct {
	config DetectConfig
}

// NewDetectHandler creates a new DetectHandler.
func NewDetectHandler(config DetectConfig) *DetectHandler {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if config.ThumbnailSide <= 0 {
		config.ThumbnailSide = render.DefaultThumbnailSide
	}
	return &DetectHandler{config: config}
}

type detectResponse struct {
	PredictedClass string              `json:"predicted_class"`
	Confidence     float64             `json:"confidence"`
	Image          string              `json:"image"`
	BoundingBoxes  [][4]float64        `json:"bounding_boxes"`
	Detections     []detectionResponse `json:"detections"`
	RunID          string              `json:"run_id,omitempty"`
}

// ServeHTTP implements the http.Handler interface.
func (h *DetectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, filename, status, msg := h.readUpload(w, r)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	result, err := h.config.Detector.Run(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrDecode):
			writeError(w, http.StatusBadRequest, "Failed to decode image")
		case errors.Is(err, pipeline.ErrNoFeatures):
			writeError(w, http.StatusBadRequest, "Could not extract features from image")
		default:
			log.WithField("filename", filename).Errorf("Detection failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Detection failed")
		}
		return
	}

	response := detectResponse{
		PredictedClass: result.PrimaryLabel,
		Confidence:     result.PrimaryConfidence,
		Image:          base64.StdEncoding.EncodeToString(result.AnnotatedImage),
		BoundingBoxes:  boxArrays(result.CandidateBoxes),
		Detections:     toDetectionResponses(result.Detections),
	}

	if run := h.persist(filename, result); run != nil {
		response.RunID = run.ID
		h.publish(run)
	}

	writeJSON(w, http.StatusOK, response)
}

// readUpload extracts the "image" part. A non-zero status reports a client
// error.
func (h *DetectHandler) readUpload(w http.ResponseWriter, r *http.Request) (data []byte, filename string, status int, msg string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)

	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", http.StatusRequestEntityTooLarge, "Image too large"
		}
		return nil, "", http.StatusBadRequest, "No image part in the request"
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		// A part named image without a filename arrives as a plain value.
		if r.MultipartForm != nil && len(r.MultipartForm.Value["image"]) > 0 {
			return nil, "", http.StatusBadRequest, "No selected image"
		}
		return nil, "", http.StatusBadRequest, "No image part in the request"
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, "", http.StatusBadRequest, "No selected image"
	}

	data, err = io.ReadAll(file)
	if err != nil {
		return nil, "", http.StatusBadRequest, "Failed to read image"
	}

	return data, header.Filename, 0, ""
}

// persist records the run. Failures are logged and yield nil.
func (h *DetectHandler) persist(filename string, result *pipeline.Result) *store.Run {
	if h.config.Store == nil {
		return nil
	}

	thumb, err := render.Thumbnail(result.AnnotatedImage, h.config.ThumbnailSide)
	if err != nil {
		log.Warnf("Failed to build thumbnail: %v", err)
	}

	run := toRun(uuid.New().String(), filename, result, thumb)
	if err := h.config.Store.Runs().Create(run); err != nil {
		log.Errorf("Failed to save run: %v", err)
		return nil
	}

	return run
}

func (h *DetectHandler) publish(run *store.Run) {
	if h.config.Publisher == nil {
		return
	}

	resp := toRunResponse(run)
	h.config.Publisher.Publish(Event{Type: EventRunCompleted, RunID: run.ID, Run: &resp})
}
