package finetune

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults for the command-line surface.
const (
	DefaultOutputDir    = "./output"
	DefaultBatchSize    = 4
	DefaultEpochs       = 1.0
	DefaultLearningRate = 1e-4
	DefaultGradAccum    = 1
)

// Options are the per-run inputs of the LoRA pipeline.
type Options struct {
	// Model is a hub model id or a local model directory.
	Model string
	// DataPath is a documents directory or a JSONL file.
	DataPath     string
	OutputDir    string
	BatchSize    int
	Epochs       float64
	LearningRate float64
	GradAccum    int
	// HFToken is the resolved hub token; empty skips login.
	HFToken string
	// MaxLength overrides the configured truncation length when > 0.
	MaxLength int
	// OllamaName, when set, registers the trained adapter with Ollama on
	// top of OllamaBase (defaults to Model).
	OllamaName string
	OllamaBase string
}

// Validate checks required fields and numeric ranges.
func (o Options) Validate() error {
	var errs []error
	if strings.TrimSpace(o.Model) == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if strings.TrimSpace(o.DataPath) == "" {
		errs = append(errs, errors.New("data path is required"))
	}
	if o.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", o.BatchSize))
	}
	if o.Epochs <= 0 {
		errs = append(errs, fmt.Errorf("epochs must be positive, got %g", o.Epochs))
	}
	if o.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("learning rate must be positive, got %g", o.LearningRate))
	}
	if o.GradAccum <= 0 {
		errs = append(errs, fmt.Errorf("gradient accumulation steps must be positive, got %d", o.GradAccum))
	}
	if o.MaxLength < 0 {
		errs = append(errs, fmt.Errorf("max length must not be negative, got %d", o.MaxLength))
	}
	return errors.Join(errs...)
}
