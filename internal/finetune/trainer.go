package finetune

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"doctune/internal/common/execx"
	xlog "doctune/internal/log"
	"doctune/pkg/types"
)

// Trainer event names.
const (
	EventStart = "start"
	EventStep  = "step"
	EventSave  = "save"
	EventDone  = "done"
	EventError = "error"
)

// Trainer runs the training loop described by a job file.
type Trainer interface {
	Train(ctx context.Context, jobPath string, onEvent func(types.TrainerEvent)) error
}

// CommandTrainer runs an external trainer executable with "--job <path>".
type CommandTrainer struct {
	Command []string
	Env     map[string]string
	// Stderr receives trainer stderr; nil logs it at info level and keeps
	// the last lines for the failure error.
	Stderr io.Writer

	log zerolog.Logger
}

// NewCommandTrainer returns a trainer for argv command.
func NewCommandTrainer(command []string, env map[string]string) *CommandTrainer {
	return &CommandTrainer{Command: command, Env: env, log: xlog.WithComponent("trainer")}
}

// ParseEvent decodes a stdout line. Lines that are not JSON objects with an
// "event" key are reported as not ok.
func ParseEvent(line string) (types.TrainerEvent, bool) {
	var ev types.TrainerEvent
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return ev, false
	}
	if err := json.Unmarshal([]byte(line), &ev); err != nil || ev.Event == "" {
		return ev, false
	}
	return ev, true
}

// Train blocks until the trainer exits. A non-zero exit is returned together
// with the last message of an "error" event, if any.
func (t *CommandTrainer) Train(ctx context.Context, jobPath string, onEvent func(types.TrainerEvent)) error {
	if len(t.Command) == 0 {
		return fmt.Errorf("trainer command is empty")
	}
	argv, err := ResolveCommand(t.Command, filepath.Dir(jobPath))
	if err != nil {
		return fmt.Errorf("write trainer script: %w", err)
	}
	args := append(append([]string{}, argv[1:]...), "--job", jobPath)
	var lastErr string
	c := execx.Cmd{
		Path:   argv[0],
		Args:   args,
		Env:    t.Env,
		Stream: true,
		Stderr: t.Stderr,
		OnStdout: func(line string) {
			ev, ok := ParseEvent(line)
			if !ok {
				if strings.TrimSpace(line) != "" {
					t.log.Info().Msg(line)
				}
				return
			}
			if ev.Event == EventError {
				lastErr = ev.Message
			}
			if onEvent != nil {
				onEvent(ev)
			}
		},
	}
	tail := &lineTail{max: stderrTailLines}
	if t.Stderr == nil {
		c.OnStderr = func(line string) {
			tail.add(line)
			if strings.TrimSpace(line) != "" {
				t.log.Info().Str("stream", "stderr").Msg(line)
			}
		}
	}
	t.log.Info().Str("cmd", c.String()).Msg("starting trainer")
	err = execx.RunCmd(ctx, c)
	if err == nil {
		return nil
	}
	if execx.IsNotFound(err) {
		return fmt.Errorf("trainer executable %q not found (set trainer.command or --trainer): %w", argv[0], err)
	}
	return trainerError{msg: lastErr, stderr: tail.lines, err: err}
}

// stderrTailLines is how much trainer stderr a failure carries.
const stderrTailLines = 10

// lineTail keeps the last max non-blank lines.
type lineTail struct {
	max   int
	lines []string
}

func (l *lineTail) add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	l.lines = append(l.lines, line)
	if len(l.lines) > l.max {
		l.lines = l.lines[len(l.lines)-l.max:]
	}
}
