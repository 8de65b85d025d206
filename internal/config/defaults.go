package config

import "doctune/pkg/types"

// Defaults applied when the corresponding Config fields are unset.
const (
	DefaultHubEndpoint = "https://huggingface.co"
	DefaultHubHome     = "~/.cache/huggingface"
	DefaultMaxLength   = 1024
	// TrainerScriptArg in trainer.command is replaced by the path of the
	// bundled trainer, written next to job.json.
	TrainerScriptArg = "{trainer_script}"
)

// DefaultLoRA is the adapter configuration used unless overridden.
func DefaultLoRA() types.LoRAConfig {
	return types.LoRAConfig{
		R:             8,
		Alpha:         32,
		TargetModules: []string{"q_proj", "k_proj", "v_proj", "o_proj"},
		Dropout:       0.05,
		Bias:          "none",
		TaskType:      "CAUSAL_LM",
	}
}

// Default returns a fully populated Config.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Hub: HubConfig{
			Endpoint:       DefaultHubEndpoint,
			Home:           DefaultHubHome,
			TimeoutSeconds: 60,
		},
		Trainer: TrainerConfig{
			Command:        []string{"python3", TrainerScriptArg},
			MaxLength:      DefaultMaxLength,
			LoRA:           DefaultLoRA(),
			LoggingSteps:   10,
			SaveSteps:      1000,
			SaveTotalLimit: 2,
		},
	}
}
