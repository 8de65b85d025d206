package config

import (
	"fmt"
	"strings"

	"doctune/pkg/types"
)

// Config holds tunables shared by the lora and ollama commands.
// Command-line flags override these values.
type Config struct {
	Log     LogConfig     `json:"log" yaml:"log" toml:"log"`
	Hub     HubConfig     `json:"hub" yaml:"hub" toml:"hub"`
	Ollama  OllamaConfig  `json:"ollama" yaml:"ollama" toml:"ollama"`
	Trainer TrainerConfig `json:"trainer" yaml:"trainer" toml:"trainer"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

// HubConfig points at a Hugging Face compatible model hub.
type HubConfig struct {
	Endpoint string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	// Home is HF_HOME; the token and downloaded tokenizer files live under it.
	Home string `json:"home" yaml:"home" toml:"home"`
	// TimeoutSeconds bounds each hub request.
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

type OllamaConfig struct {
	// Bin is the ollama executable; empty means discover.
	Bin string `json:"bin" yaml:"bin" toml:"bin"`
	// Host is exported as OLLAMA_HOST to child processes when set.
	Host string `json:"host" yaml:"host" toml:"host"`
}

// TrainerConfig describes the external training-loop executable.
type TrainerConfig struct {
	// Command is argv of the trainer; "--job <path>" is appended.
	Command   []string          `json:"command" yaml:"command" toml:"command"`
	Env       map[string]string `json:"env" yaml:"env" toml:"env"`
	MaxLength int               `json:"max_length" yaml:"max_length" toml:"max_length"`
	LoRA      types.LoRAConfig  `json:"lora" yaml:"lora" toml:"lora"`
	// Training-loop constants that are not exposed as flags.
	LoggingSteps   int `json:"logging_steps" yaml:"logging_steps" toml:"logging_steps"`
	SaveSteps      int `json:"save_steps" yaml:"save_steps" toml:"save_steps"`
	SaveTotalLimit int `json:"save_total_limit" yaml:"save_total_limit" toml:"save_total_limit"`
}

// Validate rejects values the trainer would choke on.
func (c Config) Validate() error {
	if len(c.Trainer.Command) == 0 || strings.TrimSpace(c.Trainer.Command[0]) == "" {
		return fmt.Errorf("trainer.command must not be empty")
	}
	if c.Trainer.MaxLength <= 0 {
		return fmt.Errorf("trainer.max_length must be positive, got %d", c.Trainer.MaxLength)
	}
	l := c.Trainer.LoRA
	if l.R <= 0 {
		return fmt.Errorf("trainer.lora.r must be positive, got %d", l.R)
	}
	if l.Dropout < 0 || l.Dropout >= 1 {
		return fmt.Errorf("trainer.lora.lora_dropout must be in [0,1), got %g", l.Dropout)
	}
	switch l.Bias {
	case "none", "all", "lora_only":
	default:
		return fmt.Errorf("trainer.lora.bias must be none|all|lora_only, got %q", l.Bias)
	}
	if len(l.TargetModules) == 0 {
		return fmt.Errorf("trainer.lora.target_modules must not be empty")
	}
	return nil
}
