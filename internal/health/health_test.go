package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, h *Handler, path string, ctx context.Context) (int, result) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	req := httptest.NewRequest("GET", path, nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rec.Code, body
}

func TestHealthz_ReportsPhase(t *testing.T) {
	t.Parallel()
	h := New(Checker{Name: "never", Check: func(context.Context) error { return errors.New("down") }})

	code, body := serve(t, h, "/healthz", context.Background())
	if code != http.StatusOK || body.Status != "ok" {
		t.Fatalf("healthz = %d %q, want 200 ok", code, body.Status)
	}
	if body.Phase != PhaseStarting {
		t.Errorf("phase = %q, want %q", body.Phase, PhaseStarting)
	}

	h.SetPhase(PhaseRunning)
	if _, body := serve(t, h, "/healthz", context.Background()); body.Phase != PhaseRunning {
		t.Errorf("phase = %q, want %q", body.Phase, PhaseRunning)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()
	ok := func(context.Context) error { return nil }
	tests := []struct {
		name       string
		checkers   []Checker
		wantStatus int
		wantChecks map[string]string
	}{
		{"no checkers", nil, http.StatusOK, map[string]string{}},
		{
			"all pass",
			[]Checker{{Name: "inference", Check: ok}, {Name: "sink", Check: ok}},
			http.StatusOK,
			map[string]string{"inference": "ok", "sink": "ok"},
		},
		{
			"one fails",
			[]Checker{
				{Name: "inference", Check: func(context.Context) error { return errors.New("all breakers open") }},
				{Name: "sink", Check: ok},
			},
			http.StatusServiceUnavailable,
			map[string]string{"inference": "fail: all breakers open", "sink": "ok"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			code, body := serve(t, New(tc.checkers...), "/readyz", context.Background())
			if code != tc.wantStatus {
				t.Errorf("status = %d, want %d", code, tc.wantStatus)
			}
			for k, want := range tc.wantChecks {
				if got := body.Checks[k]; got != want {
					t.Errorf("check %q = %q, want %q", k, got, want)
				}
			}
		})
	}
}

func TestReadyz_RespectsContextCancellation(t *testing.T) {
	t.Parallel()
	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, body := serve(t, h, "/readyz", ctx)
	if code != http.StatusServiceUnavailable || body.Status != "fail" {
		t.Errorf("readyz = %d %q, want 503 fail", code, body.Status)
	}
}
