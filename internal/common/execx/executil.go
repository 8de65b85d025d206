// Package execx runs external executables for doctune: the Ollama CLI and the
// trainer. Children get their own process group so cancellation reaches any
// grandchildren (accelerate, torchrun) as well.
package execx

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// waitDelay bounds how long Wait blocks on pipes after the context is done.
const waitDelay = 5 * time.Second

// Cmd is the unified command description.
type Cmd struct {
	Path string
	Args []string
	Env  map[string]string // additional env vars
	Dir  string            // working directory
	// Stream delivers stdout/stderr line by line to OnStdout/OnStderr.
	// Lines without a handler are written to Stdout/Stderr.
	Stream   bool
	OnStdout func(line string)
	OnStderr func(line string)
	Stdout   io.Writer // defaults to os.Stdout
	Stderr   io.Writer // defaults to os.Stderr
}

// String renders the command line for logs.
func (c Cmd) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

func (c Cmd) build(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	// inherit environment
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	return cmd
}

// RunCmd runs c to completion.
func RunCmd(ctx context.Context, c Cmd) error {
	cmd := c.build(ctx)
	stdout, stderr := c.Stdout, c.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if !c.Stream {
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		return wrap(c, cmd.Run())
	}

	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return wrap(c, err)
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return wrap(c, err)
	}
	if err := cmd.Start(); err != nil {
		return wrap(c, err)
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); stream(outPipe, c.OnStdout, stdout) }()
	go func() { defer wg.Done(); stream(errPipe, c.OnStderr, stderr) }()
	// pipes must be drained before Wait closes them
	wg.Wait()
	return wrap(c, cmd.Wait())
}

// Output runs c and returns its combined stdout and stderr.
func Output(ctx context.Context, c Cmd) (string, error) {
	cmd := c.build(ctx)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), wrap(c, err)
}

// IsNotFound reports whether err means the executable does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// ExitCode returns the exit status carried by err, or -1.
func ExitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

func wrap(c Cmd, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", c.String(), err)
}

// maxLine caps a delivered line; the remainder of a longer line is dropped.
const maxLine = 1024 * 1024

func stream(r io.Reader, onLine func(string), fallback io.Writer) {
	br := bufio.NewReaderSize(r, 64*1024)
	var line []byte
	for {
		frag, more, err := br.ReadLine()
		if err != nil {
			// ReadLine never returns a fragment together with an error
			return
		}
		if room := maxLine - len(line); room > 0 {
			line = append(line, frag[:min(len(frag), room)]...)
		}
		if more {
			continue
		}
		if onLine != nil {
			onLine(string(line))
		} else {
			fmt.Fprintln(fallback, string(line))
		}
		line = line[:0]
	}
}
