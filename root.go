package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"hello-prompt-agent/internal/config"
	"hello-prompt-agent/internal/features/config/application"
	"hello-prompt-agent/internal/features/config/domain"
	slotapp "hello-prompt-agent/internal/features/slotfilling/application"
	"hello-prompt-agent/internal/features/slotfilling/infrastructure"
	"hello-prompt-agent/internal/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "hello-prompt-agent",
	Short: "Collects task details in conversation and composes a structured prompt",
	Long: `hello-prompt-agent asks for the details a code task needs (goal, runtime,
interfaces, ...) and composes them into a sectioned prompt. An optional
chat model helps extract details, phrase questions and polish the result.`,
	SilenceUsage: true,
	RunE:         runChat,
}

// llmFlags maps CLI flags to LLM config fields. Only flags set on the
// command line override the file and environment.
var llmFlags = map[string]string{
	"provider":    "provider",
	"base-url":    "base_url",
	"api-key":     "api_key",
	"model":       "model",
	"timeout":     "timeout_sec",
	"temperature": "temperature",
	"max-tokens":  "max_tokens",
}

func init() {
	defaults := config.DefaultPaths()
	flags := rootCmd.PersistentFlags()
	flags.String("templates", defaults.Templates, "templates file (yaml, json or toml); empty uses the built-in templates")
	flags.String("agent-config", defaults.Agent, "assist config file")
	flags.String("llm-config", defaults.LLM, "LLM config file")
	flags.String("export-dir", slotapp.DefaultExportDir, "directory for /export files")
	flags.Bool("debug", false, "log raw model responses and per-turn state")
	flags.String("log-mode", "dev", "log encoder: dev or prod")

	flags.String("provider", "", "LLM provider: compatible or openai")
	flags.String("base-url", "", "LLM base URL")
	flags.String("api-key", "", "LLM API key")
	flags.String("model", "", "LLM model name")
	flags.Int("timeout", 0, "LLM request timeout in seconds")
	flags.Float64("temperature", 0, "LLM sampling temperature")
	flags.Int("max-tokens", 0, "LLM max tokens per reply")
}

// app is what every command needs after startup.
type app struct {
	bundle *config.Bundle
	log    *logger.Logger
	engine *slotapp.Engine
}

// bootstrap loads configuration and builds the engine. Configuration
// problems are returned as *domain.ConfigError.
func bootstrap(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()
	debug, _ := flags.GetBool("debug")
	mode, _ := flags.GetString("log-mode")

	log, err := logger.New(mode, debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	paths := config.Paths{}
	paths.Templates, _ = flags.GetString("templates")
	paths.Agent, _ = flags.GetString("agent-config")
	paths.LLM, _ = flags.GetString("llm-config")

	svc := config.NewAppConfigService(application.NewConfigService(), log)
	bundle, err := config.LoadBundle(svc, paths, llmOverrides(flags))
	if err != nil {
		return nil, err
	}

	if bundle.Assist.Debug && !debug {
		if log, err = logger.New(mode, true); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	exportDir, _ := flags.GetString("export-dir")
	opts := []slotapp.Option{slotapp.WithLogger(log), slotapp.WithExportDir(exportDir)}
	if bundle.UsesLLM() {
		chat, err := infrastructure.NewChatClient(bundle.LLM, log)
		if err != nil {
			return nil, &domain.ConfigError{Source: paths.LLM, Reason: "cannot create chat client", Err: err}
		}
		opts = append(opts, slotapp.WithChatClient(chat))
		log.Info("Chat model enabled", "provider", bundle.LLM.Provider, "base_url", bundle.LLM.BaseURL, "model", bundle.LLM.Model)
	}

	return &app{
		bundle: bundle,
		log:    log,
		engine: slotapp.NewEngine(bundle.Registry, bundle.Assist, opts...),
	}, nil
}

func llmOverrides(flags *pflag.FlagSet) map[string]any {
	overrides := map[string]any{}
	for flag, field := range llmFlags {
		if !flags.Changed(flag) {
			continue
		}
		overrides[field] = flags.Lookup(flag).Value.String()
	}
	return overrides
}
