package shortwords_test

import (
	"context"
	"testing"

	"github.com/MrWong99/kanaset/pkg/provider/source"
	"github.com/MrWong99/kanaset/pkg/provider/source/shortwords"
)

func TestWords(t *testing.T) {
	t.Parallel()
	got, err := shortwords.New().Words(context.Background())
	if err != nil {
		t.Fatalf("Words: %v", err)
	}
	if len(got) != 702 {
		t.Fatalf("len = %d, want 702", len(got))
	}
	if got[0] != "a" || got[25] != "z" || got[26] != "aa" || got[len(got)-1] != "zz" {
		t.Errorf("unexpected order: %q %q %q %q", got[0], got[25], got[26], got[len(got)-1])
	}
	if len(source.Dedupe(got)) != len(got) {
		t.Error("word list contains duplicates")
	}
}
