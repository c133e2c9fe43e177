package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/internal/presentation/graph"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/host"
	"github.com/aretw0/tessera/pkg/registry"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <path>",
	Short: "Export a script's block tree as a Mermaid diagram",
	Long: `Decodes the scripts at path and outputs a Mermaid flowchart (graph TD) of one
of them. Blocks that fail validation are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scripts, err := readScripts(args)
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString("id")
		script, err := pick(scripts, id)
		if err != nil {
			return err
		}

		eng, err := tessera.New(tessera.WithHost(host.NewRecorder()))
		if err != nil {
			return err
		}
		var overlay *graph.Overlay
		prepared, err := eng.Registry().Prepare(script)
		if err != nil {
			overlay = &graph.Overlay{}
			for _, p := range registry.Problems(err) {
				overlay.Problems = append(overlay.Problems, p.Path)
			}
			prepared = script
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(prepared, overlay))
		return nil
	},
}

func pick(scripts []*domain.Script, id string) (*domain.Script, error) {
	if id == "" {
		if len(scripts) != 1 {
			return nil, fmt.Errorf("found %d scripts; choose one with --id", len(scripts))
		}
		return scripts[0], nil
	}
	for _, s := range scripts {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, id)
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("id", "", "Script to draw when the path holds several")
}
