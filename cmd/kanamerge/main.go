// Command kanamerge merges JSONL pronunciation datasets. Later inputs win on
// conflicting words.
//
// Usage:
//
//	kanamerge a.jsonl b.jsonl [...] out.jsonl
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MrWong99/kanaset/internal/dataset"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("kanamerge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: kanamerge input.jsonl [input.jsonl ...] output.jsonl")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, nil)))

	if err := merge(fs.Args()); err != nil {
		slog.Error("merge failed", "err", err)
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("kanamerge: need at least one input and one output")

// merge reads every input in order and writes the union to the last path.
func merge(paths []string) error {
	if len(paths) < 2 {
		return errUsage
	}
	inputs, output := paths[:len(paths)-1], paths[len(paths)-1]

	sets := make([]map[string]string, 0, len(inputs))
	for _, p := range inputs {
		set, err := dataset.ReadFile(p)
		if err != nil {
			return err
		}
		slog.Info("read dataset", "path", p, "words", len(set))
		sets = append(sets, set)
	}
	merged := dataset.Merge(sets...)
	if err := dataset.WriteFile(output, merged); err != nil {
		return err
	}
	slog.Info("wrote dataset", "path", output, "words", len(merged))
	return nil
}
