// Package finetune runs the LoRA fine-tuning pipeline: hub login, runtime
// check, dataset preparation, the external trainer and adapter verification.
package finetune

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"doctune/internal/common/fsutil"
	"doctune/internal/config"
	"doctune/internal/corpus"
	xlog "doctune/internal/log"
	"doctune/internal/metrics"
	"doctune/internal/modelfile"
	"doctune/internal/ollama"
	"doctune/internal/tokenize"
	"doctune/pkg/types"
)

// Hub is the subset of the hub client the pipeline needs.
type Hub interface {
	Login(ctx context.Context, token string) (string, error)
	Download(ctx context.Context, repo, file string) (string, error)
}

// Runtime is the subset of the Ollama runtime the pipeline needs.
type Runtime interface {
	Check(ctx context.Context) (string, error)
	Create(ctx context.Context, name, path string) error
}

// Result describes a finished run.
type Result struct {
	RunID string
	// Skipped is set when the run stopped early because Ollama is missing.
	Skipped     bool
	Records     int
	DatasetPath string
	Format      string
	JobPath     string
	AdapterDir  string
	Adapter     AdapterInfo
	// OllamaModel is the registered model name, if any.
	OllamaModel string
	MetricsPath string
}

// Pipeline wires the collaborators of a LoRA run.
type Pipeline struct {
	Hub     Hub
	Runtime Runtime
	Trainer Trainer
	Config  config.TrainerConfig
	// Out receives user-facing status lines and the progress bar.
	Out io.Writer

	log zerolog.Logger
}

// openTokenizerFile is swapped in tests.
var openTokenizerFile = tokenize.Open

// New returns a Pipeline writing status lines to out.
func New(hub Hub, rt Runtime, tr Trainer, cfg config.TrainerConfig, out io.Writer) *Pipeline {
	if out == nil {
		out = os.Stdout
	}
	return &Pipeline{Hub: hub, Runtime: rt, Trainer: tr, Config: cfg, Out: out, log: xlog.WithComponent("finetune")}
}

func (p *Pipeline) printf(format string, args ...any) {
	fmt.Fprintf(p.Out, format+"\n", args...)
}

// Run executes the pipeline. A missing Ollama runtime ends the run early
// without error, with Result.Skipped set.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	if err := opts.Validate(); err != nil {
		return res, err
	}
	outDir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return res, err
	}
	m := metrics.NewRun("lora", res.RunID)
	if obs, ok := p.Runtime.(interface{ SetObserver(ollama.Observer) }); ok {
		obs.SetObserver(m)
	}
	logger := p.log.With().Str("run_id", res.RunID).Logger()
	phase := func(name string, start time.Time) { m.ObservePhase(name, time.Since(start)) }

	start := time.Now()
	p.login(ctx, opts.HFToken)
	phase("login", start)

	start = time.Now()
	version, err := p.Runtime.Check(ctx)
	phase("runtime_check", start)
	if err != nil {
		if ollama.IsRuntimeNotFound(err) {
			p.printf("[!] %s", ollama.InstallHint)
			res.Skipped = true
			return res, nil
		}
		return res, fmt.Errorf("check ollama: %w", err)
	}
	logger.Debug().Str("version", version).Msg("ollama available")

	res.AdapterDir = filepath.Join(outDir, AdapterDirName)
	if err := os.MkdirAll(res.AdapterDir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}
	res.MetricsPath = filepath.Join(outDir, MetricsName)
	defer func() {
		if err := m.WriteTextfile(res.MetricsPath); err != nil {
			logger.Warn().Err(err).Msg("write metrics")
		}
	}()

	start = time.Now()
	recs, err := corpus.Load(opts.DataPath)
	if err != nil {
		return res, fmt.Errorf("load dataset: %w", err)
	}
	res.Records = len(recs)
	m.SetDocuments(len(recs))
	p.printf("Loaded dataset with %d documents.", len(recs))
	if len(recs) == 0 {
		logger.Warn().Str("data", opts.DataPath).Msg("dataset is empty; the trainer will likely fail")
	}

	ds, err := p.prepareDataset(ctx, opts, outDir, recs, m)
	phase("dataset", start)
	if err != nil {
		return res, err
	}
	res.DatasetPath, res.Format = ds.Path, ds.Format

	job := BuildJob(res.RunID, opts, p.Config, outDir, ds)
	res.JobPath = filepath.Join(outDir, JobFileName)
	if err := WriteJob(res.JobPath, job); err != nil {
		return res, fmt.Errorf("write job: %w", err)
	}
	logger.Info().Str("job", res.JobPath).Str("model", opts.Model).Msg("job written")

	start = time.Now()
	bar := newProgress(p.Out)
	err = p.Trainer.Train(ctx, res.JobPath, func(ev types.TrainerEvent) {
		bar.handle(ev)
		switch ev.Event {
		case EventStep:
			m.ObserveTrainerStep(ev.Step, ev.Loss)
			logger.Debug().Int("step", ev.Step).Int("total", ev.TotalSteps).Float64("loss", ev.Loss).Msg("trainer step")
		case EventError:
			logger.Error().Str("message", ev.Message).Msg("trainer reported error")
		default:
			if ev.Message != "" {
				logger.Info().Str("event", ev.Event).Msg(ev.Message)
			}
		}
	})
	phase("train", start)
	if err != nil {
		return res, err
	}

	p.printf("Saving adapter to: %s", res.AdapterDir)
	info, err := VerifyAdapter(res.AdapterDir)
	if err != nil {
		return res, err
	}
	res.Adapter = info
	p.printf("Done. Adapter saved to %s", res.AdapterDir)

	if opts.OllamaName != "" {
		start = time.Now()
		err := p.registerAdapter(ctx, opts, outDir, res.AdapterDir)
		phase("ollama_create", start)
		if err != nil {
			return res, err
		}
		res.OllamaModel = opts.OllamaName
	}
	return res, nil
}

func (p *Pipeline) login(ctx context.Context, token string) {
	if token == "" {
		p.printf("[*] Skipping Hugging Face login (no token provided).")
		return
	}
	user, err := p.Hub.Login(ctx, token)
	switch {
	case errors.Is(err, context.Canceled):
		p.log.Warn().Err(err).Msg("login interrupted")
	case err != nil:
		p.printf("[!] Hugging Face login failed: %v", err)
	default:
		p.printf("[+] Logged in to Hugging Face successfully.")
		p.log.Debug().Str("user", user).Msg("hub login")
	}
}

// prepareDataset writes dataset.jsonl, tokenized when a tokenizer is
// available and as raw text otherwise.
func (p *Pipeline) prepareDataset(ctx context.Context, opts Options, outDir string, recs []types.Record, m *metrics.Run) (datasetInfo, error) {
	ds := datasetInfo{Path: filepath.Join(outDir, DatasetName), Format: types.DatasetText, Records: len(recs)}
	maxLen := p.Config.MaxLength
	if opts.MaxLength > 0 {
		maxLen = opts.MaxLength
	}

	if cfgPath, err := p.Hub.Download(ctx, opts.Model, tokenize.TokenizerConfigFile); err == nil {
		st, err := tokenize.LoadSpecialTokens(cfgPath)
		if err != nil {
			p.log.Warn().Err(err).Msg("read special tokens")
		}
		ds.PadToken = st.PadToken()
	} else {
		p.log.Debug().Err(err).Msg("tokenizer config unavailable")
	}

	var rows []types.TokenizedRecord
	if tk := p.openTokenizer(ctx, opts.Model); tk != nil {
		var st tokenize.Stats
		rows, st = tokenize.Dataset(tk, recs, maxLen)
		if err := tk.Close(); err != nil {
			p.log.Debug().Err(err).Msg("close tokenizer")
		}
		m.SetTokens(st.Tokens, st.Truncated)
		ds.Format = types.DatasetTokenized
		p.log.Info().Int("records", st.Records).Int("tokens", st.Tokens).Int("truncated", st.Truncated).
			Int("max_length", maxLen).Msg("tokenized dataset")
	}

	err := fsutil.WriteFileAtomic(ds.Path, 0o644, func(w io.Writer) error {
		if ds.Format == types.DatasetTokenized {
			return tokenize.WriteJSONL(w, rows)
		}
		return tokenize.WriteJSONL(w, recs)
	})
	if err != nil {
		return ds, fmt.Errorf("write dataset: %w", err)
	}
	return ds, nil
}

// openTokenizer returns nil when the dataset must fall back to raw text.
func (p *Pipeline) openTokenizer(ctx context.Context, model string) tokenize.Tokenizer {
	path, err := p.Hub.Download(ctx, model, tokenize.TokenizerFile)
	if err != nil {
		p.log.Warn().Err(err).Msg("tokenizer unavailable; trainer will tokenize")
		return nil
	}
	tk, err := openTokenizerFile(path)
	if err != nil {
		if tokenize.IsUnavailable(err) {
			p.log.Info().Msg("built without native tokenizer; trainer will tokenize")
		} else {
			p.log.Warn().Err(err).Str("path", path).Msg("open tokenizer")
		}
		return nil
	}
	return tk
}

// registerAdapter creates an Ollama model that layers the adapter on a base.
func (p *Pipeline) registerAdapter(ctx context.Context, opts Options, outDir, adapterDir string) error {
	base := opts.OllamaBase
	if base == "" {
		base = opts.Model
	}
	mf := &modelfile.Modelfile{From: base, Adapter: adapterDir}
	path := modelfile.PathFor(outDir, opts.OllamaName)
	if err := mf.Write(path); err != nil {
		return fmt.Errorf("write modelfile: %w", err)
	}
	p.printf("[+] Modelfile created at %s", path)
	if err := p.Runtime.Create(ctx, opts.OllamaName, path); err != nil {
		return fmt.Errorf("ollama create %s: %w", opts.OllamaName, err)
	}
	p.printf("[+] New model '%s' created from base '%s' with adapter.", opts.OllamaName, base)
	return nil
}
