package threat

// ONNX transcript classification via Hugot. A fine-tuned text classifier
// (scam vs. legitimate) runs fully local over ONNX Runtime, with a pure Go
// backend as fallback. The layer degrades to absent when no model is found.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/rs/zerolog/log"
)

// HugotConfig configures the ONNX transcript classifier.
type HugotConfig struct {
	// ModelPath is the local path to the ONNX model directory.
	ModelPath string

	// OnnxLibraryPath is the directory holding libonnxruntime.
	// Empty means use the pure Go backend.
	OnnxLibraryPath string

	// Timeout bounds a single inference call.
	Timeout time.Duration
}

// HugotClassifier implements Classifier over a local ONNX model.
type HugotClassifier struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	mu       sync.RWMutex
	config   HugotConfig
	ready    bool
}

// AutoDetectHugotConfig looks for a usable model. Checks
// RAKSHAK_MODEL_PATH first, then ./models/scam-classifier.
// Returns nil when no model is present.
func AutoDetectHugotConfig() *HugotConfig {
	candidates := []string{
		os.Getenv("RAKSHAK_MODEL_PATH"),
		"./models/scam-classifier",
	}
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, "model.onnx")); err == nil {
			return &HugotConfig{
				ModelPath:       dir,
				OnnxLibraryPath: defaultOnnxPath(),
				Timeout:         30 * time.Second,
			}
		}
	}
	return nil
}

// NewAutoDetectedHugotClassifier creates a classifier from auto-detected
// models. Returns nil if none are available.
func NewAutoDetectedHugotClassifier() *HugotClassifier {
	cfg := AutoDetectHugotConfig()
	if cfg == nil {
		return nil
	}
	c, err := NewHugotClassifier(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("hugot_classifier_init_failed")
		return nil
	}
	return c
}

// NewHugotClassifier creates a classifier with the given configuration.
func NewHugotClassifier(cfg HugotConfig) (*HugotClassifier, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &HugotClassifier{config: cfg}
	if err := c.initialize(); err != nil {
		return nil, fmt.Errorf("hugot initialization failed: %w", err)
	}
	return c, nil
}

func (c *HugotClassifier) initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.createSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	c.session = session

	pipeline, err := hugot.NewPipeline(session, hugot.TextClassificationConfig{
		ModelPath: c.config.ModelPath,
		Name:      "scam-transcript-classifier",
	})
	if err != nil {
		_ = c.session.Destroy()
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	c.pipeline = pipeline
	c.ready = true
	log.Info().Str("model", c.config.ModelPath).Msg("hugot_classifier_ready")
	return nil
}

func (c *HugotClassifier) createSession() (*hugot.Session, error) {
	// Try ONNX Runtime first, fall back to the pure Go backend
	if c.config.OnnxLibraryPath != "" {
		session, err := hugot.NewORTSession(options.WithOnnxLibraryPath(c.config.OnnxLibraryPath))
		if err == nil {
			return session, nil
		}
		log.Warn().Err(err).Msg("onnxruntime_unavailable_using_go_backend")
	}
	return hugot.NewGoSession()
}

func defaultOnnxPath() string {
	paths := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/opt/homebrew/lib/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Dir(p)
		}
	}
	return ""
}

// IsReady returns true if the model loaded and the pipeline is usable.
func (c *HugotClassifier) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// scamLabel maps the label conventions of the supported checkpoints.
func scamLabel(label string) bool {
	switch label {
	case "scam", "fraud", "SCAM", "LABEL_1", "spam":
		return true
	default:
		return false
	}
}

// Classify runs the transcript through the model and returns a scam
// probability: the model confidence when it labels scam, its complement
// otherwise.
func (c *HugotClassifier) Classify(ctx context.Context, text string) (*ClassifierResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.ready || c.pipeline == nil {
		return nil, fmt.Errorf("hugot classifier not ready")
	}

	result, err := c.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
		return nil, fmt.Errorf("classifier returned no output")
	}

	out := result.ClassificationOutputs[0][0]
	score := float64(out.Score)
	if !scamLabel(out.Label) {
		score = 1 - score
	}
	return &ClassifierResult{Score: score, Label: out.Label}, nil
}

// Close releases the ONNX session.
func (c *HugotClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	if c.session != nil {
		return c.session.Destroy()
	}
	return nil
}
