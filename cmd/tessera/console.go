package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/internal/cli"
	"github.com/aretw0/tessera/internal/presentation/tui"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Fire events interactively",
	Long: `Reads one event per line, either JSON or "category key=value ...", dispatches
it and prints the report. Background adapters keep running meanwhile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := loadApp(sigCtx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		headless, _ := cmd.Flags().GetBool("headless")
		if !cmd.Flags().Changed("headless") && !term.IsTerminal(int(os.Stdin.Fd())) {
			headless = true
		}
		plain, _ := cmd.Flags().GetBool("plain")
		out := cmd.OutOrStdout()
		if !headless {
			tui.PrintBanner(out, tessera.Version)
		}

		go func() {
			if err := app.Run(sigCtx); err != nil {
				app.Engine.Logger().Error("background adapters stopped", "err", err)
			}
		}()

		runner := tessera.NewRunner(os.Stdin, out)
		runner.Headless = headless
		if !headless && !plain {
			runner.Renderer = tui.NewReportRenderer()
		}
		err = runner.Run(sigCtx, app.Engine)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().Bool("headless", false, "No banner, prompt or styling (default when stdin is not a terminal)")
	consoleCmd.Flags().Bool("plain", false, "Print plain summaries instead of rendered tables")
}
