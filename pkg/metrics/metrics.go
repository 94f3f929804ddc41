// Package metrics accumulates counters describing one pipeline run:
// how many records entered and left, how many were suppressed or
// expanded, and the same breakdown per declarative stage.
//
// The shape (an accumulator fed during execution, a value object
// produced at the end with a computed duration field and JSON tags
// for serialization) is adapted from the reference architecture's own
// RunMetrics/AttemptMetric pair in metrics.go, generalized from
// per-attempt command metrics to per-record pipeline metrics. See
// DESIGN.md.
package metrics

import (
	"encoding/json"
	"time"
)

// StageMetric counts one declarative stage's activity across a run.
type StageMetric struct {
	Label      string `json:"label"`
	Ran        int    `json:"ran"`
	Suppressed int    `json:"suppressed"`
	Expanded   int    `json:"expanded"`
}

// RunMetrics summarizes one pipeline run, as gathered by a Collector.
type RunMetrics struct {
	RecordsIn            int           `json:"-"`
	RecordsOut           int           `json:"-"`
	Suppressed           int           `json:"-"`
	Expanded             int           `json:"-"`
	Stages               []StageMetric `json:"stages"`
	TotalDuration        time.Duration `json:"-"`
	Timestamp            int64         `json:"timestamp"`
}

// MarshalJSON adds computed fields the way the reference
// architecture's AttemptMetric does for its own duration field.
func (m *RunMetrics) MarshalJSON() ([]byte, error) {
	type Alias RunMetrics
	return json.Marshal(&struct {
		RecordsIn            int     `json:"records_in"`
		RecordsOut           int     `json:"records_out"`
		Suppressed           int     `json:"suppressed"`
		Expanded             int     `json:"expanded"`
		TotalDurationSeconds float64 `json:"total_duration_seconds"`
		*Alias
	}{
		RecordsIn:            m.RecordsIn,
		RecordsOut:           m.RecordsOut,
		Suppressed:           m.Suppressed,
		Expanded:             m.Expanded,
		TotalDurationSeconds: m.TotalDuration.Seconds(),
		Alias:                (*Alias)(m),
	})
}

// NewRunMetrics builds a RunMetrics snapshot.
func NewRunMetrics(recordsIn, recordsOut, suppressed, expanded int, stages []StageMetric, duration time.Duration) *RunMetrics {
	return &RunMetrics{
		RecordsIn:     recordsIn,
		RecordsOut:    recordsOut,
		Suppressed:    suppressed,
		Expanded:      expanded,
		Stages:        stages,
		TotalDuration: duration,
		Timestamp:     time.Now().Unix(),
	}
}

// Collector accumulates counts while a pipeline executes. A builder
// wires one Collector into every declarative stage's action closure
// (see pkg/config.Build) so it can be converted into a RunMetrics
// snapshot once the run finishes.
type Collector struct {
	recordsIn  int
	recordsOut int
	suppressed int
	expanded   int
	stages     []*StageMetric
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// StageCounter registers a new stage under label and returns a handle
// the builder's wrapped action updates as records pass through it.
func (c *Collector) StageCounter(label string) *StageMetric {
	m := &StageMetric{Label: label}
	c.stages = append(c.stages, m)
	return m
}

// ObserveIn records one record entering the pipeline's root source.
func (c *Collector) ObserveIn() { c.recordsIn++ }

// ObserveOut records one record reaching the end of the pipeline.
func (c *Collector) ObserveOut() { c.recordsOut++ }

// ObserveSuppressed records one record nulled out by a stage.
func (c *Collector) ObserveSuppressed() { c.suppressed++ }

// ObserveExpanded records n successor records produced by an
// expanding stage.
func (c *Collector) ObserveExpanded(n int) { c.expanded += n }

// Finish produces a RunMetrics snapshot from the counts gathered so
// far, stamping the elapsed duration.
func (c *Collector) Finish(duration time.Duration) *RunMetrics {
	stages := make([]StageMetric, len(c.stages))
	for i, s := range c.stages {
		stages[i] = *s
	}
	return NewRunMetrics(c.recordsIn, c.recordsOut, c.suppressed, c.expanded, stages, duration)
}
