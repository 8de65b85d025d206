// Package ollama drives the Ollama CLI: discovery, version check, model
// creation from a Modelfile and a first run of the new model.
package ollama

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"doctune/internal/common/execx"
	"doctune/internal/common/fsutil"
	xlog "doctune/internal/log"
)

// DefaultPrompt is sent to a freshly created model.
const DefaultPrompt = "Summarize the training data."

// Observer receives the outcome of each ollama invocation.
type Observer interface {
	ObserveCommand(subcommand string, dur time.Duration, err error)
}

// Runtime invokes a local ollama executable.
type Runtime struct {
	// Bin is the configured executable; empty means Discover.
	Bin string
	// Host is exported as OLLAMA_HOST when set.
	Host string
	// Stdout/Stderr receive output of create and run.
	Stdout   io.Writer
	Stderr   io.Writer
	Observer Observer

	log zerolog.Logger
}

// New returns a Runtime logging under the "ollama" component.
func New(bin, host string) *Runtime {
	return &Runtime{Bin: bin, Host: host, log: xlog.WithComponent("ollama")}
}

// SetObserver attaches o to later invocations.
func (r *Runtime) SetObserver(o Observer) { r.Observer = o }

// test seams
var (
	lookPath   = exec.LookPath
	candidates = defaultCandidates
)

func defaultCandidates() []string {
	home, _ := os.UserHomeDir()
	return []string{
		"/usr/local/bin/ollama",
		"/usr/bin/ollama",
		"/opt/homebrew/bin/ollama",
		filepath.Join(home, ".local", "bin", "ollama"),
		"/Applications/Ollama.app/Contents/Resources/ollama",
	}
}

// Discover resolves the ollama executable. A configured bin wins; otherwise
// $PATH is searched, then well-known install locations. It returns "" when
// nothing is found.
func Discover(bin string) string {
	if strings.TrimSpace(bin) != "" {
		p, err := fsutil.ExpandHome(bin)
		if err != nil {
			return bin
		}
		return p
	}
	if lp, err := lookPath("ollama"); err == nil {
		return lp
	}
	for _, p := range candidates() {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

func (r *Runtime) resolve() (string, error) {
	bin := Discover(r.Bin)
	if bin == "" {
		return "", ErrRuntimeNotFound(r.Bin)
	}
	return bin, nil
}

func (r *Runtime) cmd(bin string, args ...string) execx.Cmd {
	c := execx.Cmd{Path: bin, Args: args, Stdout: r.Stdout, Stderr: r.Stderr}
	if r.Host != "" {
		c.Env = map[string]string{"OLLAMA_HOST": r.Host}
	}
	return c
}

func (r *Runtime) observe(sub string, start time.Time, err error) {
	if r.Observer != nil {
		r.Observer.ObserveCommand(sub, time.Since(start), err)
	}
}

// Check runs "ollama --version" and returns its output. A missing
// executable yields an error satisfying IsRuntimeNotFound.
func (r *Runtime) Check(ctx context.Context) (string, error) {
	bin, err := r.resolve()
	if err != nil {
		return "", err
	}
	start := time.Now()
	out, err := execx.Output(ctx, r.cmd(bin, "--version"))
	r.observe("version", start, err)
	if err != nil {
		if execx.IsNotFound(err) {
			return "", ErrRuntimeNotFound(bin)
		}
		return "", err
	}
	version := strings.TrimSpace(out)
	r.log.Debug().Str("bin", bin).Str("version", version).Msg("runtime available")
	return version, nil
}

// Create registers name from the Modelfile at path.
func (r *Runtime) Create(ctx context.Context, name, path string) error {
	bin, err := r.resolve()
	if err != nil {
		return err
	}
	r.log.Info().Str("model", name).Str("modelfile", path).Msg("creating model")
	start := time.Now()
	err = execx.RunCmd(ctx, r.cmd(bin, "create", name, "-f", path))
	r.observe("create", start, err)
	if err != nil && execx.IsNotFound(err) {
		return ErrRuntimeNotFound(bin)
	}
	return err
}

// Run sends a single prompt to name and streams the answer to Stdout.
func (r *Runtime) Run(ctx context.Context, name, prompt string) error {
	bin, err := r.resolve()
	if err != nil {
		return err
	}
	if prompt == "" {
		prompt = DefaultPrompt
	}
	start := time.Now()
	err = execx.RunCmd(ctx, r.cmd(bin, "run", name, prompt))
	r.observe("run", start, err)
	return err
}
