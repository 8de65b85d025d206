package finetune

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Files the trainer must leave in the adapter directory.
const (
	AdapterConfigFile  = "adapter_config.json"
	AdapterWeightsFile = "adapter_model.safetensors"
)

// AdapterInfo is the subset of adapter_config.json doctune reports on.
type AdapterInfo struct {
	BaseModel     string   `json:"base_model_name_or_path"`
	PeftType      string   `json:"peft_type"`
	R             int      `json:"r"`
	Alpha         int      `json:"lora_alpha"`
	TargetModules []string `json:"target_modules"`
}

// VerifyAdapter checks that dir holds a serialized adapter and returns its
// configuration.
func VerifyAdapter(dir string) (AdapterInfo, error) {
	var info AdapterInfo
	cfgPath := filepath.Join(dir, AdapterConfigFile)
	b, err := os.ReadFile(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return info, adapterMissingError{dir: dir, file: AdapterConfigFile}
		}
		return info, err
	}
	if err := json.Unmarshal(b, &info); err != nil {
		return info, fmt.Errorf("parse %s: %w", cfgPath, err)
	}
	fi, err := os.Stat(filepath.Join(dir, AdapterWeightsFile))
	if err != nil || fi.Size() == 0 {
		return info, adapterMissingError{dir: dir, file: AdapterWeightsFile}
	}
	return info, nil
}
