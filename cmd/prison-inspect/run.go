package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		dumpPath   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a JSONC scenario file against a fresh arena",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			s, err := loadScenario(configPath)
			if err != nil {
				return err
			}
			r := newScenarioRunner()
			for n, op := range s.Ops {
				if err := r.apply(op); err != nil {
					return fmt.Errorf("op %d (%s): %w", n, op.Op, err)
				}
			}
			stats := r.arena.Stats()
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(stats); err != nil {
				return err
			}
			if dumpPath != "" {
				return dumpStats(dumpPath, stats)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a JSONC scenario file")
	cmd.Flags().StringVar(&dumpPath, "dump", "", "optional path to atomically write the final stats snapshot")
	return cmd
}
