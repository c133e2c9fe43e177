package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/internal/presentation/tui"
	"github.com/aretw0/tessera/pkg/host"
	"github.com/aretw0/tessera/pkg/registry"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the available block types",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := tessera.New(tessera.WithHost(host.NewRecorder()))
		if err != nil {
			return err
		}
		handlers := eng.Registry().Handlers()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(handlers)
		}
		md := kindsMarkdown(handlers)
		if plain, _ := cmd.Flags().GetBool("plain"); !plain {
			if rendered, err := tui.NewRenderer()(md); err == nil {
				md = rendered
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	},
}

func kindsMarkdown(handlers []registry.Handler) string {
	var b strings.Builder
	b.WriteString("| Type | Kind | Description |\n|---|---|---|\n")
	for _, h := range handlers {
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", h.Type, h.Kind, h.Doc)
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(kindsCmd)
	kindsCmd.Flags().Bool("json", false, "Print handlers and parameter schemas as JSON")
	kindsCmd.Flags().Bool("plain", false, "Print the raw markdown table")
}
