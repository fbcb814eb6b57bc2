package benchmark

import (
	"errors"
	"fmt"
)

// Canonical metric names of a Report.
const (
	MetricAvgStepTime = "avg_step_time"
	MetricTotalTime   = "total_time"
	MetricMemory      = "memory"
)

// MetricOrder is the display order of report metrics.
var MetricOrder = []string{MetricAvgStepTime, MetricTotalTime, MetricMemory}

var (
	ErrNoSamples    = errors.New("no samples")
	ErrZeroBaseline = errors.New("baseline mean is zero")
)

// MetricSummary compares one metric between the baseline and the monitored run.
type MetricSummary struct {
	Base        float64 `json:"base"`
	RTLola      float64 `json:"rtlola"`
	Unit        string  `json:"unit"`
	OverheadPct float64 `json:"overhead_pct"`
}

// Report maps metric names to their summaries.
type Report map[string]MetricSummary

// Mean is the arithmetic mean; an empty slice is ErrNoSamples.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoSamples
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// OverheadPct returns (treatment - baseline) / baseline * 100.
func OverheadPct(baseline, treatment float64) (float64, error) {
	if baseline == 0 {
		return 0, ErrZeroBaseline
	}
	return (treatment - baseline) / baseline * 100, nil
}

// Analyze computes the overhead of treatment over baseline for step time (ms),
// total run time (s) and memory (MB).
func Analyze(baseline, treatment *SampleSet) (Report, error) {
	if baseline == nil || treatment == nil {
		return nil, fmt.Errorf("both sample sets are required: %w", ErrNoSamples)
	}

	metrics := []struct {
		name        string
		unit        string
		scale       float64
		base, treat []float64
	}{
		{MetricAvgStepTime, "ms", 1000, baseline.StepTimes, treatment.StepTimes},
		{MetricTotalTime, "s", 1, baseline.TotalTimes, treatment.TotalTimes},
		{MetricMemory, "MB", 1.0 / 1024, baseline.MemoryUsage, treatment.MemoryUsage},
	}

	report := make(Report, len(metrics))
	for _, m := range metrics {
		base, err := Mean(m.base)
		if err != nil {
			return nil, fmt.Errorf("%s baseline: %w", m.name, err)
		}
		treat, err := Mean(m.treat)
		if err != nil {
			return nil, fmt.Errorf("%s rtlola: %w", m.name, err)
		}
		summary := MetricSummary{Base: base * m.scale, RTLola: treat * m.scale, Unit: m.unit}
		if summary.OverheadPct, err = OverheadPct(summary.Base, summary.RTLola); err != nil {
			return nil, fmt.Errorf("%s: %w", m.name, err)
		}
		report[m.name] = summary
	}
	return report, nil
}

// Comparison describes how a metric moved between two saved reports.
type Comparison struct {
	Name          string
	OverheadDelta float64 // percentage points
	RTLolaDiff    float64 // percentage change of the monitored mean
	Prev          MetricSummary
	Curr          MetricSummary
}

// Compare returns comparisons for the metrics present in both reports, in MetricOrder.
func Compare(prev, curr Report) []Comparison {
	var comparisons []Comparison
	for _, name := range MetricOrder {
		p, okPrev := prev[name]
		c, okCurr := curr[name]
		if !okPrev || !okCurr {
			continue
		}
		comp := Comparison{
			Name:          name,
			OverheadDelta: c.OverheadPct - p.OverheadPct,
			Prev:          p,
			Curr:          c,
		}
		if p.RTLola != 0 {
			comp.RTLolaDiff = (c.RTLola - p.RTLola) / p.RTLola * 100
		}
		comparisons = append(comparisons, comp)
	}
	return comparisons
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s: %+.2f pp overhead", c.Name, c.OverheadDelta)
}
