// Package dataset reads, writes and merges the JSON Lines pronunciation
// dataset. Each line is one record:
//
//	{"word":"helmet","kata":["ヘルメット"]}
//
// Output is sorted by word so that identical result sets produce identical
// files.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
)

// ErrMalformed is returned for lines that are not a valid record.
var ErrMalformed = errors.New("dataset: malformed record")

// Record is one dataset line.
type Record struct {
	Word string   `json:"word"`
	Kata []string `json:"kata"`
}

// Records converts a word → pronunciation map into records sorted by word.
func Records(results map[string]string) []Record {
	words := slices.Sorted(maps.Keys(results))
	out := make([]Record, len(words))
	for i, w := range words {
		out[i] = Record{Word: w, Kata: []string{results[w]}}
	}
	return out
}

// Encode writes results to w, one record per line, sorted by word.
func Encode(w io.Writer, results map[string]string) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, rec := range Records(results) {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("dataset: encode %q: %w", rec.Word, err)
		}
	}
	return bw.Flush()
}

// Decode reads records from r into a word → pronunciation map. Blank lines
// are skipped. Every record must carry a non-empty word and exactly one
// pronunciation; when a word repeats the later line wins.
func Decode(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		if rec.Word == "" || len(rec.Kata) != 1 {
			return nil, fmt.Errorf("%w: line %d: want a word and exactly one kata", ErrMalformed, line)
		}
		out[rec.Word] = rec.Kata[0]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset: read: %w", err)
	}
	return out, nil
}

// Merge folds datasets left to right; later datasets win on conflicts.
func Merge(sets ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, s := range sets {
		maps.Copy(out, s)
	}
	return out
}

// ReadFile decodes the dataset at path.
func ReadFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer f.Close()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WriteFile atomically replaces path with the encoded results: the data is
// written to a temporary file in the same directory, synced, and renamed
// into place. On error path is left untouched.
func WriteFile(path string, results map[string]string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := Encode(tmp, results); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("dataset: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("dataset: close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("dataset: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("dataset: rename: %w", err)
	}
	return nil
}
