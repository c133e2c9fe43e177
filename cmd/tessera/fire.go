package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/tessera"
)

var fireCmd = &cobra.Command{
	Use:   "fire <category> [key=value...]",
	Short: "Dispatch a single event",
	Long: `Loads the configured scripts, dispatches one event and prints the report.
The event is either a JSON document or a category followed by key=value pairs.`,
	Example: `  tessera fire actor.join actor=Ann
  tessera fire '{"category": "actor.chat", "fields": {"message": "hi"}}' --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := tessera.ParseEvent(strings.Join(quoteArgs(args), " "))
		if err != nil {
			return err
		}
		ctx := context.Background()
		app, err := loadApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		report := app.Engine.Dispatch(ctx, ev)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tessera.Summary(report))
		if errs := report.Errors(); len(errs) > 0 {
			return fmt.Errorf("%d script(s) failed", len(errs))
		}
		return nil
	},
}

// quoteArgs re-quotes shell arguments holding spaces so that ParseEvent
// splits them the way the shell did.
func quoteArgs(args []string) []string {
	if len(args) == 1 && strings.HasPrefix(args[0], "{") {
		return args
	}
	out := make([]string, len(args))
	for i, a := range args {
		key, value, ok := strings.Cut(a, "=")
		if ok && strings.Contains(value, " ") && !strings.Contains(value, `"`) {
			a = key + `="` + value + `"`
		}
		out[i] = a
	}
	return out
}

func init() {
	rootCmd.AddCommand(fireCmd)
	fireCmd.Flags().Bool("json", false, "Print the report as JSON")
}
