package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables consulted when the matching flag is not set.
const (
	envConfig     = "DOCTUNE_CONFIG"
	envLogLevel   = "DOCTUNE_LOG_LEVEL"
	envLogFormat  = "DOCTUNE_LOG_FORMAT"
	envOutputDir  = "DOCTUNE_OUTPUT_DIR"
	envMaxLength  = "DOCTUNE_MAX_LENGTH"
	envTrainer    = "DOCTUNE_TRAINER"
	envEpochs     = "DOCTUNE_NUM_TRAIN_EPOCHS"
	envLR         = "DOCTUNE_LEARNING_RATE"
	envNoRun      = "DOCTUNE_NO_RUN"
	envOllamaBin  = "OLLAMA_BIN"
	envOllamaHost = "OLLAMA_HOST"
)

// Env helpers
func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	s := strings.ToLower(v)
	return s == "1" || s == "true" || s == "yes"
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		_, err := fmt.Sscanf(v, "%d", &n)
		if err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
