// Package ui reports pipeline progress and final run statistics to a
// writer, adapted from the reference architecture's own Reporter:
// quiet-mode gating, an emoji-prefixed summary line, and a
// human-readable duration formatter kept close to verbatim. See
// DESIGN.md.
package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudlens/cloudlens/pkg/metrics"
)

// Reporter writes progress and summary output for a pipeline run.
type Reporter struct {
	writer io.Writer
	quiet  bool
}

// NewReporter creates a reporter writing to writer.
func NewReporter(writer io.Writer) *Reporter {
	return &Reporter{writer: writer}
}

// SetQuiet enables or disables per-record progress lines; the final
// summary always prints regardless of quiet mode.
func (r *Reporter) SetQuiet(quiet bool) {
	r.quiet = quiet
}

// RecordProcessed reports one record reaching the pipeline's final
// layer, identified by its canonical rendering.
func (r *Reporter) RecordProcessed(n int, rendered string) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.writer, "[cloudlens] record %d: %s\n", n, rendered)
}

// RunSummary reports final record counts and per-stage activity.
func (r *Reporter) RunSummary(m *metrics.RunMetrics) {
	if m.Suppressed == 0 && m.Expanded == 0 {
		fmt.Fprintf(r.writer, "✅ [cloudlens] processed %d record(s), %d emitted.\n", m.RecordsIn, m.RecordsOut)
	} else {
		fmt.Fprintf(r.writer, "✅ [cloudlens] processed %d record(s), %d emitted (%d suppressed, %d expanded).\n",
			m.RecordsIn, m.RecordsOut, m.Suppressed, m.Expanded)
	}

	fmt.Fprintf(r.writer, "\nRun Statistics:\n")
	fmt.Fprintf(r.writer, "  Records In:  %d\n", m.RecordsIn)
	fmt.Fprintf(r.writer, "  Records Out: %d\n", m.RecordsOut)
	fmt.Fprintf(r.writer, "  Suppressed:  %d\n", m.Suppressed)
	fmt.Fprintf(r.writer, "  Expanded:    %d\n", m.Expanded)
	fmt.Fprintf(r.writer, "  Duration:    %s\n", formatDuration(m.TotalDuration))

	for _, st := range m.Stages {
		fmt.Fprintf(r.writer, "  Stage %-20s ran=%-5d suppressed=%-5d expanded=%d\n", st.Label, st.Ran, st.Suppressed, st.Expanded)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}

	if d < time.Second {
		return fmt.Sprintf("%.1fs", float64(d)/float64(time.Second))
	}

	if d < time.Minute {
		seconds := float64(d) / float64(time.Second)
		if seconds == float64(int(seconds)) {
			return fmt.Sprintf("%.0fs", seconds)
		}
		formatted := fmt.Sprintf("%.2f", seconds)
		formatted = strings.TrimRight(formatted, "0")
		formatted = strings.TrimRight(formatted, ".")
		return formatted + "s"
	}

	hours := d / time.Hour
	minutes := (d % time.Hour) / time.Minute
	seconds := (d % time.Minute) / time.Second

	if hours > 0 {
		switch {
		case minutes > 0 && seconds > 0:
			return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
		case minutes > 0:
			return fmt.Sprintf("%dh%dm", hours, minutes)
		case seconds > 0:
			return fmt.Sprintf("%dh%ds", hours, seconds)
		default:
			return fmt.Sprintf("%dh", hours)
		}
	}

	if minutes > 0 {
		if seconds > 0 {
			return fmt.Sprintf("%dm%ds", minutes, seconds)
		}
		return fmt.Sprintf("%dm", minutes)
	}

	return fmt.Sprintf("%ds", seconds)
}
