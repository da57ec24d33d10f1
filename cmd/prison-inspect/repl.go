package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/Voskan/prison/pkg/prison"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session against a fresh arena",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := &repl{runner: newScenarioRunner()}
			return r.run()
		},
	}
}

// repl is an interactive command loop over a scenarioRunner's arena, in the
// same shape as a slot-cache REPL: a liner prompt with
// history, a handful of single-word commands, and a table-formatted
// listing.
type repl struct {
	runner *scenarioRunner
	line   *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".prison_inspect_history")
}

func (r *repl) run() error {
	r.line = liner.NewLiner()
	defer r.line.Close()

	r.line.SetCtrlCAborts(true)
	r.line.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}

	fmt.Println("prison-inspect repl -- type 'help' for available commands")

	for {
		line, err := r.line.Prompt("prison> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nbye")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.line.AppendHistory(line)

		parts := strings.Fields(line)
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			r.saveHistory()
			return nil
		case "help", "?":
			r.printHelp()
		case "insert":
			r.cmdInsert(args)
		case "remove", "rm":
			r.cmdRemove(args)
		case "visit":
			r.cmdVisit(args)
		case "list", "ls":
			r.cmdList()
		case "stats":
			r.cmdStats()
		case "clear":
			if err := r.runner.arena.Clear(); err != nil {
				fmt.Println("error:", err)
			} else {
				r.runner.keys = make(map[uint32]prison.Key)
			}
		default:
			fmt.Printf("unknown command %q; type 'help'\n", cmd)
		}
	}
	return nil
}

func (r *repl) saveHistory() {
	if f, err := os.Create(historyFile()); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
}

func (r *repl) completer(line string) []string {
	cmds := []string{"insert", "remove", "visit", "list", "stats", "clear", "help", "exit"}
	var out []string
	for _, c := range cmds {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

func (r *repl) printHelp() {
	fmt.Println(`commands:
  insert <value>         insert a new value, printing its Key
  remove <index>         remove the value tracked at that index
  visit <index>          print the value at that index via VisitRef
  list                   list every tracked index and its current value
  stats                  print the arena's Stats() snapshot
  clear                  remove every value
  help                   this message
  exit                   leave the REPL`)
}

func (r *repl) cmdInsert(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: insert <value>")
		return
	}
	value := strings.Join(args, " ")
	k, err := r.runner.arena.Insert(value)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	r.runner.keys[k.Index()] = k
	fmt.Println(k.String())
}

func (r *repl) cmdRemove(args []string) {
	idx, ok := parseIndex(args)
	if !ok {
		fmt.Println("usage: remove <index>")
		return
	}
	k, ok := r.runner.keys[idx]
	if !ok {
		fmt.Println("error: no tracked key at that index")
		return
	}
	v, err := r.runner.arena.Remove(k)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	delete(r.runner.keys, idx)
	fmt.Printf("removed %q\n", v)
}

func (r *repl) cmdVisit(args []string) {
	idx, ok := parseIndex(args)
	if !ok {
		fmt.Println("usage: visit <index>")
		return
	}
	k, ok := r.runner.keys[idx]
	if !ok {
		fmt.Println("error: no tracked key at that index")
		return
	}
	err := r.runner.arena.VisitRef(k, func(v *string) error {
		fmt.Printf("%q\n", *v)
		return nil
	})
	if err != nil {
		fmt.Println("error:", err)
	}
}

func (r *repl) cmdList() {
	const col = 10
	header := runewidth.FillRight("index", col) + runewidth.FillRight("generation", col) + "value"
	fmt.Println(header)
	for idx, k := range r.runner.keys {
		v, err := r.runner.arena.CloneVal(k)
		if err != nil {
			continue
		}
		row := runewidth.FillRight(strconv.FormatUint(uint64(idx), 10), col) +
			runewidth.FillRight(strconv.FormatUint(uint64(k.Generation()), 10), col) + v
		fmt.Println(row)
	}
}

func (r *repl) cmdStats() {
	s := r.runner.arena.Stats()
	fmt.Printf("len=%d capacity=%d active_refs=%d generation=%d free_list_len=%d\n",
		s.Len, s.Capacity, s.ActiveRefs, s.Generation, s.FreeListLen)
}

func parseIndex(args []string) (uint32, bool) {
	if len(args) != 1 {
		return 0, false
	}
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
