package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"doctune/internal/cli"
)

func main() {
	// Ctrl+C / SIGTERM cancel in-flight hub requests and child processes
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Main(ctx)
	stop()
	os.Exit(code)
}
