package finetune

import (
	"encoding/json"
	"io"
	"path/filepath"

	"doctune/internal/common/fsutil"
	"doctune/internal/config"
	"doctune/pkg/types"
)

// Layout of the output directory.
const (
	AdapterDirName = "adapter"
	TrainerDirName = "hf_trainer"
	JobFileName    = "job.json"
	DatasetName    = "dataset.jsonl"
	MetricsName    = "metrics.prom"
)

// datasetInfo describes the dataset file handed to the trainer.
type datasetInfo struct {
	Path     string
	Format   string
	Records  int
	PadToken string
}

// BuildJob assembles the trainer job for one run.
func BuildJob(runID string, opts Options, cfg config.TrainerConfig, outputDir string, ds datasetInfo) types.TrainJob {
	maxLen := cfg.MaxLength
	if opts.MaxLength > 0 {
		maxLen = opts.MaxLength
	}
	lora := cfg.LoRA
	lora.TargetModules = append([]string(nil), cfg.LoRA.TargetModules...)
	return types.TrainJob{
		RunID:         runID,
		BaseModel:     opts.Model,
		Dataset:       ds.Path,
		DatasetFormat: ds.Format,
		Records:       ds.Records,
		MaxLength:     maxLen,
		PadToken:      ds.PadToken,
		TorchDtype:    "float16",
		DeviceMap:     "auto",
		PrepareKBit:   true,
		LoRA:          lora,
		Training: types.TrainingArgs{
			OutputDir:                 filepath.Join(outputDir, TrainerDirName),
			PerDeviceTrainBatchSize:   opts.BatchSize,
			NumTrainEpochs:            opts.Epochs,
			LearningRate:              opts.LearningRate,
			FP16:                      true,
			LoggingSteps:              cfg.LoggingSteps,
			SaveSteps:                 cfg.SaveSteps,
			SaveTotalLimit:            cfg.SaveTotalLimit,
			RemoveUnusedColumns:       false,
			ReportTo:                  []string{},
			GradientAccumulationSteps: opts.GradAccum,
		},
		AdapterDir:        filepath.Join(outputDir, AdapterDirName),
		SafeSerialization: true,
	}
}

// WriteJob atomically writes job as indented JSON.
func WriteJob(path string, job types.TrainJob) error {
	return fsutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	})
}
