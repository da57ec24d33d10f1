package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Voskan/prison/pkg/prison"
)

func newBenchCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Throw N insert/visit/remove cycles at an arena and report throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return fmt.Errorf("--n must be positive")
			}
			a := prison.WithCapacity[string](n)

			start := time.Now()
			keys := make([]prison.Key, n)
			for i := 0; i < n; i++ {
				k, err := a.Insert("v")
				if err != nil {
					return err
				}
				keys[i] = k
			}
			insertElapsed := time.Since(start)

			start = time.Now()
			for _, k := range keys {
				if err := a.VisitRef(k, func(v *string) error { return nil }); err != nil {
					return err
				}
			}
			visitElapsed := time.Since(start)

			start = time.Now()
			for _, k := range keys {
				if _, err := a.Remove(k); err != nil {
					return err
				}
			}
			removeElapsed := time.Since(start)

			fmt.Printf("insert: %d ops in %s (%.0f ops/s)\n", n, insertElapsed, float64(n)/insertElapsed.Seconds())
			fmt.Printf("visit:  %d ops in %s (%.0f ops/s)\n", n, visitElapsed, float64(n)/visitElapsed.Seconds())
			fmt.Printf("remove: %d ops in %s (%.0f ops/s)\n", n, removeElapsed, float64(n)/removeElapsed.Seconds())
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "n", "n", 100_000, "number of elements to cycle through")
	return cmd
}
