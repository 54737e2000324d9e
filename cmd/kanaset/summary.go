package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/MrWong99/kanaset/internal/app"
	"github.com/MrWong99/kanaset/internal/config"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

// printStartupSummary shows the selected providers and run knobs.
func printStartupSummary(cfg *config.Config, runID string) {
	bold.Fprintln(os.Stderr, "kanaset: startup summary")
	table := tablewriter.NewWriter(os.Stderr)
	table.Header("Setting", "Value")
	_ = table.Append("Run ID", runID)
	_ = table.Append("Source", cfg.Providers.Source.Name)
	_ = table.Append("Inference", providerLabel(cfg.Providers.Inference))
	_ = table.Append("Sink", cfg.Providers.Sink.Name)
	_ = table.Append("Concurrency", fmt.Sprint(cfg.Run.Concurrency))
	if cfg.Run.Batch.Size > 0 {
		_ = table.Append("Batch size", fmt.Sprintf("%d (fixed)", cfg.Run.Batch.Size))
	} else {
		_ = table.Append("Batch size", fmt.Sprintf("probe %d..%d × %.2f", cfg.Run.Batch.ProbeMin, cfg.Run.Batch.ProbeMax, cfg.Run.Batch.SafetyRatio))
	}
	_ = table.Append("Throttle", durationOrOff(cfg.Run.ThrottleInterval))
	_ = table.Append("Cooldown", cfg.Run.Cooldown.String())
	_ = table.Append("Retries / rounds", fmt.Sprintf("%d / %d", cfg.Run.Retries(), cfg.Run.MaxRounds))
	if cfg.Server.MetricsAddr != "" {
		_ = table.Append("Metrics", cfg.Server.MetricsAddr)
	}
	_ = table.Render()
}

func providerLabel(e config.ProviderEntry) string {
	if e.Model == "" {
		return e.Name
	}
	return e.Name + " / " + e.Model
}

func durationOrOff(d time.Duration) string {
	if d <= 0 {
		return "off"
	}
	return d.String()
}

// printSummary renders the outcome of a run as a table.
func printSummary(w io.Writer, sum *app.Summary) {
	if sum.DryRun {
		bold.Fprintln(w, "kanaset: dry run")
	} else {
		bold.Fprintln(w, "kanaset: run complete")
	}
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	_ = table.Append("Words", fmt.Sprint(sum.Words))
	if sum.Capacity > 0 {
		_ = table.Append("Probed capacity", fmt.Sprint(sum.Capacity))
	}
	_ = table.Append("Batch size", fmt.Sprint(sum.BatchSize))
	if !sum.DryRun {
		_ = table.Append("Results", green.Sprint(sum.Results))
		_ = table.Append("Invalid", countColor(sum.Invalid).Sprint(sum.Invalid))
		_ = table.Append("Exhausted", countColor(sum.Exhausted).Sprint(sum.Exhausted))
		_ = table.Append("Coverage", coverage(sum))
		_ = table.Append("Rounds", fmt.Sprint(sum.Rounds))
		_ = table.Append("Batches", fmt.Sprint(sum.Batches))
		_ = table.Append("Rate limits", countColor(sum.RateLimits).Sprint(sum.RateLimits))
	}
	_ = table.Append("Duration", sum.Duration.Round(time.Millisecond).String())
	_ = table.Render()
}

func countColor(n int) *color.Color {
	if n == 0 {
		return green
	}
	return yellow
}

func coverage(sum *app.Summary) string {
	if sum.Words == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(sum.Results)/float64(sum.Words))
}

// printFailure reports a failed run on stderr.
func printFailure(err error) {
	red.Fprintf(os.Stderr, "kanaset: run failed: %v\n", err)
}
