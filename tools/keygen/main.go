package main

// keygen is a tiny helper utility to generate deterministic scenario
// files for cmd/prison-inspect (outside `go test`). It emits a JSONC ops
// list -- --n insert ops, each followed with probability --churn by a remove
// of the index that insert was assigned, then one final insert -- so
// contributors can regenerate the exact fixture used in a performance or
// regression hunt.
//
// Usage:
//
//	go run ./tools/keygen --n 1000 --churn 0.1 --seed 42 --out scenario.json
//
// Flags:
//
//	--n       number of insert ops to generate (default 1000)
//	--churn   fraction of inserted indices immediately removed (default 0.1)
//	--seed    PRNG seed (default 42)
//	--out     output file (default stdout)
//
// © 2025 prison authors. MIT License.

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/pflag"
)

type op struct {
	Op    string `json:"op"`
	Value string `json:"value,omitempty"`
	Index uint32 `json:"index,omitempty"`
}

func main() {
	var (
		n       = pflag.Int("n", 1000, "number of insert ops to generate")
		churn   = pflag.Float64("churn", 0.1, "fraction of inserted indices immediately removed")
		seed    = pflag.Int64("seed", 42, "PRNG seed")
		outPath = pflag.String("out", "", "output file (default stdout)")
	)
	pflag.Parse()

	if *churn < 0 || *churn > 1 {
		fmt.Fprintln(os.Stderr, "churn must be in [0, 1]")
		os.Exit(1)
	}

	rnd := rand.New(rand.NewSource(*seed))

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<16)
	defer w.Flush()

	// Simulate the arena's own free-list allocation (LIFO reuse, append
	// otherwise) so that a churn-triggered remove op always references the
	// real slot index the scenario runner will have assigned, not the
	// generator's insertion-order counter -- those two diverge as soon as
	// the first slot is freed and reused.
	var freeStack []uint32
	var nextAppend uint32
	allocIndex := func() uint32 {
		if last := len(freeStack) - 1; last >= 0 {
			idx := freeStack[last]
			freeStack = freeStack[:last]
			return idx
		}
		idx := nextAppend
		nextAppend++
		return idx
	}

	fmt.Fprintln(w, "// generated by tools/keygen, do not edit by hand")
	fmt.Fprintln(w, "{")
	fmt.Fprintln(w, `  "ops": [`)
	for i := 0; i < *n; i++ {
		idx := allocIndex()
		fmt.Fprintf(w, "    {\"op\": \"insert\", \"value\": \"v%d\"},\n", i)
		if rnd.Float64() < *churn {
			fmt.Fprintf(w, "    {\"op\": \"remove\", \"index\": %d},\n", idx)
			freeStack = append(freeStack, idx)
		}
	}
	fmt.Fprintln(w, "    {\"op\": \"insert\", \"value\": \"sentinel\"}")
	fmt.Fprintln(w, "  ]")
	fmt.Fprintln(w, "}")
}
