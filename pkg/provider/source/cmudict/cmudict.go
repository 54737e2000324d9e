// Package cmudict reads candidate words from the CMU Pronouncing Dictionary
// (cmudict-0.7b format).
//
// Each entry line is "WORD  PHONEMES". Only plain alphabetic headwords of at
// least three letters are kept; alternate pronunciations ("WORD(1)"),
// punctuation entries and ";;;" comments are skipped. The file is Latin-1
// encoded and is decoded before scanning.
package cmudict

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/MrWong99/kanaset/pkg/provider/source"
)

// DefaultPath is where the dictionary is looked up when no path is configured.
const DefaultPath = "deps/cmudict/cmudict-0.7b"

var entryPattern = regexp.MustCompile(`^([A-Z]{3,}) {2}.+$`)

// Provider implements source.Provider over a cmudict file.
type Provider struct {
	path string
}

// New returns a Provider reading path. An empty path selects [DefaultPath].
func New(path string) *Provider {
	if path == "" {
		path = DefaultPath
	}
	return &Provider{path: path}
}

// Words implements source.Provider.
func (p *Provider) Words(ctx context.Context) ([]string, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("cmudict: %w: %w", source.ErrSource, err)
	}
	defer f.Close()

	words, err := Parse(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("cmudict: read %s: %w", p.path, err)
	}
	return words, nil
}

// Parse extracts the lower-cased, de-duplicated headwords from r.
func Parse(ctx context.Context, r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var words []string
	for n := 0; sc.Scan(); n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		m := entryPattern.FindStringSubmatch(strings.TrimRight(sc.Text(), "\r"))
		if m == nil {
			continue
		}
		words = append(words, strings.ToLower(m[1]))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", source.ErrSource, err)
	}
	return source.Dedupe(words), nil
}

// Ensure Provider implements source.Provider at compile time.
var _ source.Provider = (*Provider)(nil)
