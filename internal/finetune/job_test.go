package finetune

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctune/internal/config"
	"doctune/pkg/types"
)

func TestBuildJobDefaults(t *testing.T) {
	cfg := config.Default().Trainer
	ds := datasetInfo{Path: "/out/dataset.jsonl", Format: types.DatasetText, Records: 3, PadToken: "</s>"}
	job := BuildJob("run-1", validOptions(), cfg, "/out", ds)

	assert.Equal(t, "run-1", job.RunID)
	assert.Equal(t, "meta-llama/Llama-2-7b-hf", job.BaseModel)
	assert.Equal(t, "/out/dataset.jsonl", job.Dataset)
	assert.Equal(t, types.DatasetText, job.DatasetFormat)
	assert.Equal(t, 3, job.Records)
	assert.Equal(t, 1024, job.MaxLength)
	assert.Equal(t, "</s>", job.PadToken)
	assert.Equal(t, "float16", job.TorchDtype)
	assert.Equal(t, "auto", job.DeviceMap)
	assert.True(t, job.PrepareKBit)
	assert.True(t, job.SafeSerialization)
	assert.Equal(t, filepath.Join("/out", "adapter"), job.AdapterDir)

	assert.Equal(t, 8, job.LoRA.R)
	assert.Equal(t, 32, job.LoRA.Alpha)
	assert.Equal(t, []string{"q_proj", "k_proj", "v_proj", "o_proj"}, job.LoRA.TargetModules)
	assert.InDelta(t, 0.05, job.LoRA.Dropout, 1e-9)
	assert.Equal(t, "none", job.LoRA.Bias)
	assert.Equal(t, "CAUSAL_LM", job.LoRA.TaskType)

	tr := job.Training
	assert.Equal(t, filepath.Join("/out", "hf_trainer"), tr.OutputDir)
	assert.Equal(t, 4, tr.PerDeviceTrainBatchSize)
	assert.InDelta(t, 1.0, tr.NumTrainEpochs, 1e-9)
	assert.InDelta(t, 1e-4, tr.LearningRate, 1e-12)
	assert.True(t, tr.FP16)
	assert.Equal(t, 10, tr.LoggingSteps)
	assert.Equal(t, 1000, tr.SaveSteps)
	assert.Equal(t, 2, tr.SaveTotalLimit)
	assert.False(t, tr.RemoveUnusedColumns)
	assert.Empty(t, tr.ReportTo)
	assert.Equal(t, 1, tr.GradientAccumulationSteps)
}

func TestBuildJobOverridesAndIsolation(t *testing.T) {
	cfg := config.Default().Trainer
	o := validOptions()
	o.MaxLength = 256
	o.BatchSize, o.Epochs, o.LearningRate, o.GradAccum = 2, 3.5, 2e-4, 8
	job := BuildJob("r", o, cfg, "/o", datasetInfo{})
	assert.Equal(t, 256, job.MaxLength)
	assert.Equal(t, 2, job.Training.PerDeviceTrainBatchSize)
	assert.InDelta(t, 3.5, job.Training.NumTrainEpochs, 1e-9)
	assert.Equal(t, 8, job.Training.GradientAccumulationSteps)

	job.LoRA.TargetModules[0] = "mutated"
	assert.Equal(t, "q_proj", cfg.LoRA.TargetModules[0])
}

func TestWriteJob(t *testing.T) {
	p := filepath.Join(t.TempDir(), JobFileName)
	job := BuildJob("r", validOptions(), config.Default().Trainer, "/o", datasetInfo{Path: "/o/d.jsonl", Format: types.DatasetTokenized})
	require.NoError(t, WriteJob(p, job))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "tokenized", raw["dataset_format"])
	assert.NotContains(t, raw, "pad_token")
	lora := raw["lora"].(map[string]any)
	assert.EqualValues(t, 32, lora["lora_alpha"])
	training := raw["training"].(map[string]any)
	assert.Equal(t, []any{}, training["report_to"])
	assert.Equal(t, false, training["remove_unused_columns"])

	var back types.TrainJob
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, job, back)
}
