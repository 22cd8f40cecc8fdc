package main

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/helmetscan/internal/classifier"
	"github.com/ayusman/helmetscan/internal/config"
	"github.com/ayusman/helmetscan/internal/pipeline"
	"github.com/ayusman/helmetscan/internal/server"
	"github.com/ayusman/helmetscan/internal/store"
)

func main() {
	fmt.Println("helmetscan - Helmet Detection Service")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	// Load the classifier once; it is shared by every request
	clf, err := classifier.Load(cfg.ModelPath)
	if err != nil {
		log.Fatalf("Failed to load classifier: %v", err)
	}
	if cfg.SerializeClassifier {
		clf = classifier.NewSerialized(clf)
	}
	log.WithField("labels", clf.Labels()).Infof("Loaded classifier from %s", cfg.ModelPath)

	// Initialize the store
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	if staticDir != "" {
		log.Infof("Serving static files from: %s", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir:      staticDir,
		Store:          st,
		Detector:       pipeline.New(cfg.Pipeline(), clf),
		ModelName:      filepath.Base(cfg.ModelPath),
		AllowedOrigin:  cfg.AllowedOrigin,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		ThumbnailSide:  cfg.ThumbnailSide,
	})

	log.Infof("Starting server on %s", cfg.Addr)
	if err := srv.ListenAndServe(cfg.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
