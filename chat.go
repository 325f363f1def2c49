package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"hello-prompt-agent/internal/features/slotfilling/presentation/cli"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive session (default)",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	for _, c := range []*cobra.Command{rootCmd, chatCmd} {
		c.Flags().Bool("render", false, "render the final prompt as Markdown")
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	render, _ := cmd.Flags().GetBool("render")
	return cli.NewREPL(a.engine, os.Stdin, os.Stdout, render).Run(ctx)
}
