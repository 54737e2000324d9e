package clock_test

import (
	"testing"
	"time"

	"github.com/MrWong99/kanaset/internal/clock"
)

func TestFake_AfterAdvances(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := clock.NewFake(start)

	got := <-f.After(5 * time.Second)
	if want := start.Add(5 * time.Second); !got.Equal(want) || !f.Now().Equal(want) {
		t.Errorf("After fired at %v, now %v, want %v", got, f.Now(), want)
	}

	f.Advance(time.Minute)
	if want := start.Add(65 * time.Second); !f.Now().Equal(want) {
		t.Errorf("Now = %v, want %v", f.Now(), want)
	}
	if s := f.Sleeps(); len(s) != 1 || s[0] != 5*time.Second {
		t.Errorf("Sleeps = %v", s)
	}
}

func TestSystem(t *testing.T) {
	t.Parallel()
	before := time.Now()
	<-clock.System.After(time.Millisecond)
	if !clock.System.Now().After(before) {
		t.Error("system clock did not advance")
	}
}
