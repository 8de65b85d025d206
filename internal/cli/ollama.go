package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"doctune/internal/corpus"
	xlog "doctune/internal/log"
	"doctune/internal/metrics"
	"doctune/internal/modelfile"
	"doctune/internal/ollama"
)

// OllamaOptions are the inputs of the prompt-embedding procedure.
type OllamaOptions struct {
	Base    string
	Name    string
	DocsDir string
	Prompt  string
	NoRun   bool
	// Dir receives the Modelfile.
	Dir string
	// MetricsPath, when set, receives a Prometheus textfile.
	MetricsPath string
}

func newOllamaCmd(s *Settings) *cobra.Command {
	o := OllamaOptions{Dir: "."}
	cmd := &cobra.Command{
		Use:     "ollama",
		Short:   "Create an Ollama model whose system prompt embeds a document folder",
		Example: "  doctune ollama --base llama3 --name docs-llama --docs ./docs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("no-run") {
				o.NoRun = envBool(envNoRun, o.NoRun)
			}
			return fnRunOllama(cmd.Context(), s, o)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&o.Base, "base", "", "Base model name, e.g. llama3")
	fl.StringVar(&o.Name, "name", "", "Name of the new model")
	fl.StringVar(&o.DocsDir, "docs", "", "Folder of .txt/.md documents (top level only)")
	fl.StringVar(&o.Prompt, "prompt", ollama.DefaultPrompt, "Prompt sent to the new model after creation")
	fl.BoolVar(&o.NoRun, "no-run", false, "Skip the test run after creation (defaults DOCTUNE_NO_RUN)")
	fl.StringVar(&o.MetricsPath, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("docs")
	return cmd
}

// runOllama writes the Modelfile, creates the model and runs it once.
func runOllama(ctx context.Context, s *Settings, o OllamaOptions) error {
	logger := xlog.WithComponent("cli")
	docs, err := corpus.LoadDir(o.DocsDir, corpus.PromptOptions)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	if len(docs) == 0 {
		logger.Warn().Str("dir", o.DocsDir).Msg("no .txt or .md documents found")
	}

	m := metrics.NewRun("ollama", uuid.NewString())
	m.SetDocuments(len(docs))
	defer func() {
		if o.MetricsPath == "" {
			return
		}
		if err := m.WriteTextfile(o.MetricsPath); err != nil {
			logger.Warn().Err(err).Msg("write metrics")
		}
	}()

	mf := modelfile.FromDocuments(o.Base, docs)
	path := modelfile.PathFor(o.Dir, o.Name)
	if err := mf.Write(path); err != nil {
		return fmt.Errorf("write modelfile: %w", err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	s.printf("[+] Modelfile created at %s", path)

	rt := newRuntime(s)
	rt.Observer = m
	if err := rt.Create(ctx, o.Name, path); err != nil {
		if ollama.IsRuntimeNotFound(err) {
			s.printf("[!] %s", ollama.InstallHint)
		}
		return fmt.Errorf("ollama create %s: %w", o.Name, err)
	}
	s.printf("[+] New model '%s' created from base '%s'.", o.Name, o.Base)

	if o.NoRun {
		return nil
	}
	if err := rt.Run(ctx, o.Name, o.Prompt); err != nil {
		logger.Warn().Err(err).Str("model", o.Name).Msg("test run failed")
	}
	return nil
}
