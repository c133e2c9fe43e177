package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/pkg/codec"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/host"
	"github.com/aretw0/tessera/pkg/registry"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path...]",
	Short: "Check scripts against the block catalog",
	Long: `Decodes every script document in the given files or directories and reports
unknown blocks, bad parameters, misplaced control blocks and duplicate IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			args = []string{cfg.Scripts.Dir}
			if cfg.Scripts.Dir == "" {
				args = []string{"."}
			}
		}

		eng, err := tessera.New(tessera.WithHost(host.NewRecorder()))
		if err != nil {
			return err
		}
		scripts, err := readScripts(args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := 0
		seen := make(map[string]bool)
		for _, s := range scripts {
			if seen[s.ID] {
				failed++
				fmt.Fprintf(out, "✗ %s: duplicate script id\n", s.ID)
				continue
			}
			seen[s.ID] = true
			if err := eng.Validate(s); err != nil {
				failed++
				fmt.Fprintf(out, "✗ %s\n", s.ID)
				problems := registry.Problems(err)
				if len(problems) == 0 {
					fmt.Fprintf(out, "    %v\n", err)
				}
				for _, p := range problems {
					fmt.Fprintf(out, "    %s\n", p)
				}
				continue
			}
			fmt.Fprintf(out, "✓ %s\n", s.ID)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d script(s) invalid", failed, len(scripts))
		}
		fmt.Fprintf(out, "All %d script(s) are valid! ✅\n", len(scripts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// readScripts decodes files and directories in argument order.
func readScripts(paths []string) ([]*domain.Script, error) {
	var out []*domain.Script
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		var scripts []*domain.Script
		if info.IsDir() {
			scripts, err = codec.ReadDir(p)
		} else {
			scripts, err = codec.ReadFile(p)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, scripts...)
	}
	return out, nil
}
