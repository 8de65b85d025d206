package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `
log:
  level: debug
ollama:
  bin: /opt/ollama/bin/ollama
trainer:
  command: [python3, train.py]
  max_length: 512
  lora:
    r: 16
    lora_alpha: 64
    target_modules: [q_proj, v_proj]
    lora_dropout: 0.1
    bias: none
    task_type: CAUSAL_LM
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Ollama.Bin != "/opt/ollama/bin/ollama" || cfg.Trainer.MaxLength != 512 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Trainer.LoRA.R != 16 || cfg.Trainer.LoRA.Alpha != 64 || len(cfg.Trainer.LoRA.TargetModules) != 2 {
		t.Fatalf("unexpected lora: %+v", cfg.Trainer.LoRA)
	}
	// untouched keys keep defaults
	if cfg.Hub.Endpoint != DefaultHubEndpoint || cfg.Trainer.SaveSteps != 1000 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"hub":{"endpoint":"http://hub.local"},"trainer":{"command":["trainer"],"save_steps":50}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Hub.Endpoint != "http://hub.local" || cfg.Trainer.Command[0] != "trainer" || cfg.Trainer.SaveSteps != 50 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Trainer.MaxLength != DefaultMaxLength {
		t.Fatalf("max length default lost: %d", cfg.Trainer.MaxLength)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "[ollama]\nhost = \"127.0.0.1:11434\"\n\n[trainer]\nlogging_steps = 5\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Ollama.Host != "127.0.0.1:11434" || cfg.Trainer.LoggingSteps != 5 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	d := t.TempDir()
	cases := map[string]string{
		"empty-command.yaml": "trainer:\n  command: []\n",
		"bad-bias.yaml":      "trainer:\n  lora:\n    bias: sometimes\n",
		"bad-dropout.yaml":   "trainer:\n  lora:\n    lora_dropout: 1.5\n",
		"bad-maxlen.yaml":    "trainer:\n  max_length: -1\n",
	}
	for name, body := range cases {
		p := writeTempFile(t, d, name, body)
		if _, err := Load(p); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestDiscover(t *testing.T) {
	d := t.TempDir()
	cfg, src, err := Discover("", d)
	if err != nil || src != "" {
		t.Fatalf("empty dir: src=%q err=%v", src, err)
	}
	if cfg.Trainer.LoRA.R != 8 {
		t.Fatalf("expected defaults, got %+v", cfg.Trainer.LoRA)
	}
	p := writeTempFile(t, d, "doctune.toml", "[log]\nlevel = \"warn\"\n")
	cfg, src, err = Discover("", d)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if src != p || cfg.Log.Level != "warn" {
		t.Fatalf("src=%q cfg=%+v", src, cfg.Log)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(""); err != nil {
		t.Fatalf("empty path: %v", err)
	}
	d := t.TempDir()
	p := writeTempFile(t, d, ".env", "DOCTUNE_TEST_ENV_FILE=from-file\n")
	t.Cleanup(func() { os.Unsetenv("DOCTUNE_TEST_ENV_FILE") })
	if err := LoadEnvFile(p); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("DOCTUNE_TEST_ENV_FILE"); got != "from-file" {
		t.Fatalf("got %q", got)
	}
	if err := LoadEnvFile(filepath.Join(d, "missing.env")); err == nil {
		t.Fatalf("expected error for missing env file")
	}
}
