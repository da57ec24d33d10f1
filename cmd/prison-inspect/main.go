// Command prison-inspect is a small operator tool for poking at a
// prison.Arena[string] from a terminal: replay a scripted scenario, drive
// one interactively through a REPL, or throw a quick throughput benchmark
// at it. It is not part of the library's public API surface -- it exists to
// make the generational-arena behaviour (keys, generations, the refcount
// gate) tangible without writing a Go program first.
//
// © 2025 prison authors. MIT License.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "prison-inspect:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "prison-inspect",
		Short: "Inspect and exercise a prison.Arena from the command line",
		Long: `prison-inspect drives a prison.Arena[string] through scripted
scenarios, an interactive REPL, or a throughput benchmark. 'run' prints the
arena's Stats() once the scenario has been replayed, and the REPL prints it
on demand with 'stats', so the generation/refcount bookkeeping is visible.`,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newReplCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	return root
}
