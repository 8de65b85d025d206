package types

// Dataset formats understood by the trainer.
const (
	// DatasetTokenized lines are TokenizedRecord objects.
	DatasetTokenized = "tokenized"
	// DatasetText lines are Record objects; the trainer tokenizes them with MaxLength.
	DatasetText = "text"
)

// LoRAConfig describes the low-rank adapter injected into the base model.
type LoRAConfig struct {
	// Rank of the update matrices.
	// example: 8
	R int `json:"r" yaml:"r" toml:"r" example:"8"`
	// Scaling factor applied to the update.
	// example: 32
	Alpha int `json:"lora_alpha" yaml:"lora_alpha" toml:"lora_alpha" example:"32"`
	// Projection layers that receive adapters.
	// example: ["q_proj","k_proj","v_proj","o_proj"]
	TargetModules []string `json:"target_modules" yaml:"target_modules" toml:"target_modules"`
	// Dropout applied to adapter inputs.
	// example: 0.05
	Dropout float64 `json:"lora_dropout" yaml:"lora_dropout" toml:"lora_dropout" example:"0.05"`
	// Bias training mode: none, all or lora_only.
	// example: none
	Bias string `json:"bias" yaml:"bias" toml:"bias" example:"none"`
	// Task type the adapter is configured for.
	// example: CAUSAL_LM
	TaskType string `json:"task_type" yaml:"task_type" toml:"task_type" example:"CAUSAL_LM"`
}

// TrainingArgs mirrors the training-loop options passed to the trainer.
type TrainingArgs struct {
	OutputDir                 string   `json:"output_dir"`
	PerDeviceTrainBatchSize   int      `json:"per_device_train_batch_size"`
	NumTrainEpochs            float64  `json:"num_train_epochs"`
	LearningRate              float64  `json:"learning_rate"`
	FP16                      bool     `json:"fp16"`
	LoggingSteps              int      `json:"logging_steps"`
	SaveSteps                 int      `json:"save_steps"`
	SaveTotalLimit            int      `json:"save_total_limit"`
	RemoveUnusedColumns       bool     `json:"remove_unused_columns"`
	ReportTo                  []string `json:"report_to"`
	GradientAccumulationSteps int      `json:"gradient_accumulation_steps"`
}

// TrainJob is the job file consumed by the external trainer executable.
type TrainJob struct {
	RunID     string `json:"run_id"`
	BaseModel string `json:"base_model"`
	// Dataset is a JSONL file whose line shape is selected by DatasetFormat.
	Dataset       string `json:"dataset"`
	DatasetFormat string `json:"dataset_format"`
	Records       int    `json:"records"`
	MaxLength     int    `json:"max_length"`
	// PadToken is the token used for padding; empty means "use eos".
	PadToken   string `json:"pad_token,omitempty"`
	TorchDtype string `json:"torch_dtype"`
	DeviceMap  string `json:"device_map"`
	// PrepareKBit wraps the model for quantized-training compatibility.
	PrepareKBit       bool         `json:"prepare_kbit"`
	LoRA              LoRAConfig   `json:"lora"`
	Training          TrainingArgs `json:"training"`
	AdapterDir        string       `json:"adapter_dir"`
	SafeSerialization bool         `json:"safe_serialization"`
}

// TrainerEvent is one JSON line emitted by the trainer on stdout.
type TrainerEvent struct {
	// Event kind: start, step, save, done or error.
	Event      string  `json:"event"`
	Step       int     `json:"step,omitempty"`
	TotalSteps int     `json:"total_steps,omitempty"`
	Epoch      float64 `json:"epoch,omitempty"`
	Loss       float64 `json:"loss,omitempty"`
	Message    string  `json:"message,omitempty"`
}
