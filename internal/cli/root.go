// Package cli wires the doctune command tree.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"doctune/internal/config"
	xlog "doctune/internal/log"
)

// Settings is shared by all subcommands. Persistent flags fill the first
// group; the rest is resolved before a subcommand runs.
type Settings struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
	LogFormat  string

	Config       config.Config
	ConfigSource string
	Stdout       io.Writer
	Stderr       io.Writer
}

func newSettings(stdout, stderr io.Writer) *Settings {
	return &Settings{Config: config.Default(), Stdout: stdout, Stderr: stderr}
}

// load resolves env file, config file and logging in that order so values
// from the env file can select the config file and log level.
func (s *Settings) load(cmd *cobra.Command) error {
	if err := config.LoadEnvFile(s.EnvFile); err != nil {
		return err
	}
	if !cmd.Flags().Changed("config") {
		s.ConfigPath = envStr(envConfig, s.ConfigPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, src, err := config.Discover(s.ConfigPath, wd)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	s.Config, s.ConfigSource = cfg, src

	if !cmd.Flags().Changed("log-level") {
		s.LogLevel = envStr(envLogLevel, cfg.Log.Level)
	}
	if !cmd.Flags().Changed("log-format") {
		s.LogFormat = envStr(envLogFormat, cfg.Log.Format)
	}
	xlog.Configure(xlog.Config{Level: s.LogLevel, Format: s.LogFormat, Output: s.Stderr})
	if src != "" {
		xlog.L().Debug().Str("path", src).Msg("config loaded")
	}
	s.Config.Ollama.Bin = envStr(envOllamaBin, s.Config.Ollama.Bin)
	s.Config.Ollama.Host = envStr(envOllamaHost, s.Config.Ollama.Host)
	return nil
}

// buildRootCmd constructs the command tree wired to the fn* actions.
func buildRootCmd(s *Settings) *cobra.Command {
	root := &cobra.Command{
		Use:           "doctune",
		Short:         "Fine-tune language models on a folder of documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.load(cmd)
		},
	}
	root.SetOut(s.Stdout)
	root.SetErr(s.Stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&s.ConfigPath, "config", "", "Config file (.yaml|.json|.toml); defaults to ./doctune.{yaml,yml,toml,json} or DOCTUNE_CONFIG")
	pf.StringVar(&s.EnvFile, "env", "", "Load environment variables from a .env file")
	pf.StringVar(&s.LogLevel, "log-level", "info", "Log level: debug|info|warn|error (defaults DOCTUNE_LOG_LEVEL)")
	pf.StringVar(&s.LogFormat, "log-format", "console", "Log format: console|json (defaults DOCTUNE_LOG_FORMAT)")

	root.AddCommand(newLoRACmd(s), newOllamaCmd(s))

	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(s.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(s.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(s.Stdout, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error {
		return root.GenPowerShellCompletionWithDesc(s.Stdout)
	}})
	root.AddCommand(completionCmd)
	return root
}
