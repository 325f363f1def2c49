package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hello-prompt-agent/internal/config"
	"hello-prompt-agent/internal/features/config/application"
	"hello-prompt-agent/internal/pkg/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration files",
	Long:  `Loads templates, assist and LLM configuration, then reports warnings and the available modes.`,
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	paths := config.Paths{}
	paths.Templates, _ = flags.GetString("templates")
	paths.Agent, _ = flags.GetString("agent-config")
	paths.LLM, _ = flags.GetString("llm-config")

	svc := config.NewAppConfigService(application.NewConfigService(), logger.NewNop())
	bundle, err := config.LoadBundle(svc, paths, llmOverrides(flags))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, w := range bundle.Registry.Warnings() {
		fmt.Fprintln(out, "warning:", w)
	}
	fmt.Fprintln(out, bundle.Registry.MenuText())
	fmt.Fprintf(out, "LLM: provider=%s base_url=%s model=%s (enabled=%t)\n",
		bundle.LLM.Provider, bundle.LLM.BaseURL, bundle.LLM.Model, bundle.UsesLLM())
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}
