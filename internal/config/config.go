// Package config loads helmetscan settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/helmetscan/internal/pipeline"
)

// Config holds all runtime settings.
type Config struct {
	Addr          string
	ModelPath     string
	DataDir       string
	StaticDir     string
	AllowedOrigin string
	LogLevel      string

	MaxUploadMB         int
	ThumbnailSide       int
	SerializeClassifier bool

	MaxDescriptors    int
	ClusterEps        float64
	ClusterMinSamples int
	ClusterThreshold  float64
	WindowThreshold   float64
	DedupRadius       float64
	BlurKernel        int
	DefaultWindow     int
}

// Load reads a .env file if one exists, then builds a Config from HELMET_*
// variables. Unset or unparsable variables keep their defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to read .env: %v", err)
	}

	p := pipeline.DefaultConfig()
	return &Config{
		Addr:          getEnv("HELMET_ADDR", ":8080"),
		ModelPath:     getEnv("HELMET_MODEL_PATH", filepath.Join("models", "helmet_classifier.json")),
		DataDir:       getEnv("HELMET_DATA_DIR", defaultDataDir()),
		StaticDir:     getEnv("HELMET_STATIC_DIR", ""),
		AllowedOrigin: getEnv("HELMET_ALLOWED_ORIGIN", "*"),
		LogLevel:      getEnv("HELMET_LOG_LEVEL", "info"),

		MaxUploadMB:         getEnvAsInt("HELMET_MAX_UPLOAD_MB", 10),
		ThumbnailSide:       getEnvAsInt("HELMET_THUMBNAIL_SIDE", 320),
		SerializeClassifier: getEnvAsBool("HELMET_SERIALIZE_CLASSIFIER", false),

		MaxDescriptors:    getEnvAsInt("HELMET_MAX_DESCRIPTORS", p.MaxDescriptors),
		ClusterEps:        getEnvAsFloat("HELMET_CLUSTER_EPS", p.ClusterEps),
		ClusterMinSamples: getEnvAsInt("HELMET_CLUSTER_MIN_SAMPLES", p.ClusterMinSamples),
		ClusterThreshold:  getEnvAsFloat("HELMET_CLUSTER_THRESHOLD", p.ClusterThreshold),
		WindowThreshold:   getEnvAsFloat("HELMET_WINDOW_THRESHOLD", p.WindowThreshold),
		DedupRadius:       getEnvAsFloat("HELMET_DEDUP_RADIUS", p.DedupRadius),
		BlurKernel:        getEnvAsInt("HELMET_BLUR_KERNEL", p.BlurKernel),
		DefaultWindow:     getEnvAsInt("HELMET_DEFAULT_WINDOW", p.DefaultWindow),
	}
}

// Pipeline returns the pipeline parameters.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		MaxDescriptors:    c.MaxDescriptors,
		ClusterEps:        c.ClusterEps,
		ClusterMinSamples: c.ClusterMinSamples,
		ClusterThreshold:  c.ClusterThreshold,
		WindowThreshold:   c.WindowThreshold,
		DedupRadius:       c.DedupRadius,
		BlurKernel:        c.BlurKernel,
		DefaultWindow:     c.DefaultWindow,
	}
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// DBPath returns the run history database path inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "helmetscan.db")
}

// Validate checks that all numeric settings are usable.
func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"HELMET_MAX_UPLOAD_MB", float64(c.MaxUploadMB)},
		{"HELMET_THUMBNAIL_SIDE", float64(c.ThumbnailSide)},
		{"HELMET_MAX_DESCRIPTORS", float64(c.MaxDescriptors)},
		{"HELMET_CLUSTER_EPS", c.ClusterEps},
		{"HELMET_CLUSTER_MIN_SAMPLES", float64(c.ClusterMinSamples)},
		{"HELMET_DEDUP_RADIUS", c.DedupRadius},
		{"HELMET_BLUR_KERNEL", float64(c.BlurKernel)},
		{"HELMET_DEFAULT_WINDOW", float64(c.DefaultWindow)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", p.name, p.value)
		}
	}

	if c.BlurKernel%2 == 0 {
		return fmt.Errorf("HELMET_BLUR_KERNEL must be odd, got %d", c.BlurKernel)
	}

	for name, v := range map[string]float64{
		"HELMET_CLUSTER_THRESHOLD": c.ClusterThreshold,
		"HELMET_WINDOW_THRESHOLD":  c.WindowThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, v)
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("HELMET_LOG_LEVEL: %w", err)
	}

	if c.ModelPath == "" {
		return fmt.Errorf("HELMET_MODEL_PATH must be set")
	}

	return nil
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".helmetscan"
	}
	return filepath.Join(homeDir, ".helmetscan")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warnf("Ignoring %s=%q: not an integer", key, value)
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		log.Warnf("Ignoring %s=%q: not a number", key, value)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
		log.Warnf("Ignoring %s=%q: not a boolean", key, value)
	}
	return defaultValue
}
