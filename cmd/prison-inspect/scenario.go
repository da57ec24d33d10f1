package main

// scenario.go loads a JSONC (JSON-with-comments) scenario file describing a
// sequence of arena operations to replay, using hujson to accept the
// trailing commas and // comments operators find convenient when hand-
// editing a fixture, and natefinch/atomic to write the resulting stats
// snapshot without ever leaving a half-written file behind if the process
// is killed mid-dump.

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
	"github.com/tailscale/hujson"

	"github.com/Voskan/prison/pkg/prison"
)

// scenarioOp is one step of a scenario file. Index refers to the raw slot
// index last minted for that logical position within the script, not a
// generation-qualified Key -- the runner tracks the current Key per index
// itself so scenario authors don't have to know generations in advance.
type scenarioOp struct {
	Op    string `json:"op"`
	Value string `json:"value,omitempty"`
	Index uint32 `json:"index,omitempty"`
}

type scenario struct {
	Ops []scenarioOp `json:"ops"`
}

func loadScenario(path string) (*scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scenario %s", path)
	}
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid JSONC scenario")
	}
	var s scenario
	if err := json.Unmarshal(std, &s); err != nil {
		return nil, errors.Wrap(err, "invalid scenario JSON")
	}
	return &s, nil
}

// scenarioRunner replays a scenario against a fresh arena, keeping the
// current Key for every index that has one so later ops can reference the
// index without rediscovering its generation.
type scenarioRunner struct {
	arena *prison.Arena[string]
	keys  map[uint32]prison.Key
}

func newScenarioRunner() *scenarioRunner {
	return &scenarioRunner{
		arena: prison.New[string](),
		keys:  make(map[uint32]prison.Key),
	}
}

func (r *scenarioRunner) apply(op scenarioOp) error {
	switch strings.ToLower(op.Op) {
	case "insert":
		k, err := r.arena.Insert(op.Value)
		if err != nil {
			return err
		}
		r.keys[k.Index()] = k
		return nil

	case "overwrite":
		k, ok := r.keys[op.Index]
		if !ok {
			return fmt.Errorf("no tracked key at index %d", op.Index)
		}
		nk, err := r.arena.Overwrite(k, op.Value)
		if err != nil {
			return err
		}
		r.keys[nk.Index()] = nk
		return nil

	case "remove":
		k, ok := r.keys[op.Index]
		if !ok {
			return fmt.Errorf("no tracked key at index %d", op.Index)
		}
		if _, err := r.arena.Remove(k); err != nil {
			return err
		}
		delete(r.keys, op.Index)
		return nil

	case "clear":
		if err := r.arena.Clear(); err != nil {
			return err
		}
		r.keys = make(map[uint32]prison.Key)
		return nil

	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

// dumpStats writes the arena's current Stats() as indented JSON to path,
// using an atomic rename so a reader never observes a partially written
// file.
func dumpStats(path string, stats prison.Stats) error {
	body, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling stats")
	}
	body = append(body, '\n')
	return atomic.WriteFile(path, strings.NewReader(string(body)))
}
