package cli

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Actions invoked by the command tree; tests swap them.
var (
	fnRunLoRA   = runLoRA
	fnRunOllama = runOllama
)

// Run executes args against a fresh command tree and returns the error.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := buildRootCmd(newSettings(stdout, stderr))
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// MainWithArgs is a testable variant of Main. It returns the process exit code.
func MainWithArgs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := Run(ctx, args, stdout, stderr); err != nil {
		fmt.Fprintln(stderr, "Error:", err.Error())
		if ctx.Err() != nil {
			return 130
		}
		return 1
	}
	return 0
}

// Main runs doctune with os.Args for use by cmd/doctune.
func Main(ctx context.Context) int { return MainWithArgs(ctx, os.Args[1:], os.Stdout, os.Stderr) }
