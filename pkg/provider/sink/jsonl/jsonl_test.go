package jsonl_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/kanaset/pkg/provider/sink/jsonl"
)

func TestWrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data.jsonl")
	s := jsonl.New(path)

	err := s.Write(context.Background(), map[string]string{"word": "ワード", "helmet": "ヘルメット"})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\"word\":\"helmet\",\"kata\":[\"ヘルメット\"]}\n{\"word\":\"word\",\"kata\":[\"ワード\"]}\n"
	if string(got) != want {
		t.Errorf("file =\n%s\nwant\n%s", got, want)
	}
}

func TestWrite_CancelledContextWritesNothing(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data.jsonl")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := jsonl.New(path).Write(ctx, map[string]string{"a": "エー"}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file exists after failed write: %v", err)
	}
}

func TestNew_DefaultPath(t *testing.T) {
	t.Parallel()
	if got := jsonl.New("").Path(); got != jsonl.DefaultPath {
		t.Errorf("Path = %q, want %q", got, jsonl.DefaultPath)
	}
}
