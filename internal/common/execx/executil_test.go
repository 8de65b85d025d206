//go:build unix

package execx

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fake.sh")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return p
}

func TestRunCmdStreamLines(t *testing.T) {
	p := writeScript(t, "echo one\necho two\necho oops 1>&2\n")
	var mu sync.Mutex
	var out, errs []string
	err := RunCmd(context.Background(), Cmd{
		Path:     p,
		Stream:   true,
		OnStdout: func(l string) { mu.Lock(); out = append(out, l); mu.Unlock() },
		OnStderr: func(l string) { mu.Lock(); errs = append(errs, l); mu.Unlock() },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Join(out, ",") != "one,two" {
		t.Fatalf("stdout lines: %v", out)
	}
	if len(errs) != 1 || errs[0] != "oops" {
		t.Fatalf("stderr lines: %v", errs)
	}
}

func TestRunCmdEnvAndDir(t *testing.T) {
	p := writeScript(t, "echo \"$DOCTUNE_X\"\npwd\n")
	dir := t.TempDir()
	var buf bytes.Buffer
	err := RunCmd(context.Background(), Cmd{Path: p, Env: map[string]string{"DOCTUNE_X": "yes"}, Dir: dir, Stdout: &buf})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "yes" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
	real, _ := filepath.EvalSymlinks(dir)
	if got, _ := filepath.EvalSymlinks(lines[1]); got != real {
		t.Fatalf("dir: got %q want %q", got, real)
	}
}

func TestRunCmdExitCode(t *testing.T) {
	p := writeScript(t, "exit 3\n")
	err := RunCmd(context.Background(), Cmd{Path: p})
	if err == nil {
		t.Fatalf("expected error")
	}
	if ExitCode(err) != 3 {
		t.Fatalf("exit code: %d (%v)", ExitCode(err), err)
	}
	if IsNotFound(err) {
		t.Fatalf("exit error reported as not found")
	}
}

func TestRunCmdNotFound(t *testing.T) {
	err := RunCmd(context.Background(), Cmd{Path: "doctune-definitely-missing-binary"})
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	err = RunCmd(context.Background(), Cmd{Path: filepath.Join(t.TempDir(), "nope")})
	if !IsNotFound(err) {
		t.Fatalf("expected not found for abs path, got %v", err)
	}
}

func TestOutputCombined(t *testing.T) {
	p := writeScript(t, "echo out\necho err 1>&2\n")
	out, err := Output(context.Background(), Cmd{Path: p})
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if !strings.Contains(out, "out") || !strings.Contains(out, "err") {
		t.Fatalf("combined output: %q", out)
	}
}

func TestRunCmdCancel(t *testing.T) {
	p := writeScript(t, "sleep 30\n")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := RunCmd(ctx, Cmd{Path: p, Stream: true})
	if err == nil {
		t.Fatalf("expected error on cancel")
	}
	if time.Since(start) > 10*time.Second {
		t.Fatalf("cancel took too long: %v", time.Since(start))
	}
}

func TestRunCmdStreamSurvivesOverlongLine(t *testing.T) {
	p := writeScript(t, "head -c 1200000 /dev/zero | tr '\\0' a\necho\necho after\nprintf tail\n")
	var lines []string
	err := RunCmd(context.Background(), Cmd{
		Path:     p,
		Stream:   true,
		OnStdout: func(l string) { lines = append(lines, l) },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if len(lines[0]) != maxLine || strings.Trim(lines[0], "a") != "" {
		t.Fatalf("long line not truncated to %d bytes: got %d", maxLine, len(lines[0]))
	}
	if lines[1] != "after" || lines[2] != "tail" {
		t.Fatalf("lines after the long one: %q", lines[1:])
	}
}
