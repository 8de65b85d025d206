package cli

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"doctune/internal/finetune"
	"doctune/internal/hub"
	xlog "doctune/internal/log"
	"doctune/internal/ollama"
)

func newLoRACmd(s *Settings) *cobra.Command {
	var (
		o       finetune.Options
		token   string
		trainer string
	)
	cmd := &cobra.Command{
		Use:   "lora",
		Short: "LoRA fine-tune a causal language model on a document folder or JSONL file",
		Example: "  doctune lora --model meta-llama/Llama-2-7b-hf --data-dir ./docs\n" +
			"  doctune lora --model ./models/tiny --data-dir train.jsonl --num-train-epochs 3 --ollama-name docs-lora --ollama-base llama2",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if !f.Changed("output-dir") {
				o.OutputDir = envStr(envOutputDir, o.OutputDir)
			}
			if !f.Changed("max-length") {
				o.MaxLength = envInt(envMaxLength, s.Config.Trainer.MaxLength)
			}
			if !f.Changed("num-train-epochs") {
				o.Epochs = envFloat(envEpochs, o.Epochs)
			}
			if !f.Changed("learning-rate") {
				o.LearningRate = envFloat(envLR, o.LearningRate)
			}
			if !f.Changed("trainer") {
				trainer = envStr(envTrainer, trainer)
			}
			if argv := strings.Fields(trainer); len(argv) > 0 {
				s.Config.Trainer.Command = argv
			}
			o.HFToken = hub.ResolveToken(token)
			return fnRunLoRA(cmd.Context(), s, o)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&o.Model, "model", "", "Base model: hub id (org/name) or local directory")
	fl.StringVar(&o.DataPath, "data-dir", "", "Documents directory (.txt/.md, recursive) or JSONL file with a \"text\" field")
	fl.StringVar(&o.OutputDir, "output-dir", finetune.DefaultOutputDir, "Output directory; the adapter is written to <output-dir>/adapter")
	fl.IntVar(&o.BatchSize, "per-device-train-batch-size", finetune.DefaultBatchSize, "Per-device training batch size")
	fl.Float64Var(&o.Epochs, "num-train-epochs", finetune.DefaultEpochs, "Number of training epochs")
	fl.Float64Var(&o.LearningRate, "learning-rate", finetune.DefaultLearningRate, "Learning rate")
	fl.IntVar(&o.GradAccum, "gradient-accumulation-steps", finetune.DefaultGradAccum, "Gradient accumulation steps")
	fl.StringVar(&token, "hf-token", "", "Hugging Face token (defaults HF_TOKEN)")
	fl.IntVar(&o.MaxLength, "max-length", 0, "Truncate records to this many tokens (defaults trainer.max_length, 1024)")
	fl.StringVar(&trainer, "trainer", "", "Trainer command line overriding trainer.command")
	fl.StringVar(&o.OllamaName, "ollama-name", "", "Register the adapter as this Ollama model after training")
	fl.StringVar(&o.OllamaBase, "ollama-base", "", "Ollama base model for --ollama-name (defaults --model)")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("data-dir")
	return cmd
}

// runLoRA builds the real collaborators and runs the pipeline.
func runLoRA(ctx context.Context, s *Settings, o finetune.Options) error {
	logger := xlog.WithComponent("cli")
	hc, err := hub.New(hub.Options{
		Endpoint: s.Config.Hub.Endpoint,
		Home:     s.Config.Hub.Home,
		Timeout:  time.Duration(s.Config.Hub.TimeoutSeconds) * time.Second,
		Token:    o.HFToken,
	})
	if err != nil {
		return err
	}
	rt := newRuntime(s)

	env := map[string]string{}
	maps.Copy(env, s.Config.Trainer.Env)
	if _, ok := env["HF_HOME"]; !ok {
		env["HF_HOME"] = hc.Home()
	}
	tr := finetune.NewCommandTrainer(s.Config.Trainer.Command, env)

	res, err := finetune.New(hc, rt, tr, s.Config.Trainer, s.Stdout).Run(ctx, o)
	if err != nil {
		return err
	}
	if res.Skipped {
		return nil
	}
	logger.Info().
		Str("run_id", res.RunID).
		Int("records", res.Records).
		Str("dataset_format", res.Format).
		Str("adapter", res.AdapterDir).
		Int("r", res.Adapter.R).
		Str("metrics", res.MetricsPath).
		Msg("fine-tuning finished")
	return nil
}

func newRuntime(s *Settings) *ollama.Runtime {
	rt := ollama.New(s.Config.Ollama.Bin, s.Config.Ollama.Host)
	rt.Stdout, rt.Stderr = s.Stdout, s.Stderr
	return rt
}

// printf writes a user-facing status line.
func (s *Settings) printf(format string, args ...any) {
	fmt.Fprintf(s.Stdout, format+"\n", args...)
}
