package types

import (
	"fmt"
	"math"
	"strings"
)

// CostStats summarizes the sequence-length distribution of one FASTA file.
// Each field is a running sum over the lengths n of the file's records.
type CostStats struct {
	Sum    float64 // Σ n
	LogSum float64 // Σ n·ln(n)
	SqSum  float64 // Σ n²
}

// Add accumulates one sequence of length n. Lengths below 1 are ignored;
// the parser rejects them before they get here.
func (c *CostStats) Add(n int) {
	if n < 1 {
		return
	}
	f := float64(n)
	c.Sum += f
	c.LogSum += f * math.Log(f)
	c.SqSum += f * f
}

// Sequence is a single FASTA record reduced to what the cost model needs.
// It is produced while parsing and never persisted.
type Sequence struct {
	ID     string
	Length int
}

// Metric selects which CostStats field is used as a file's cost weight.
type Metric string

const (
	MetricSum    Metric = "sum"
	MetricLogSum Metric = "logsum"
	MetricSqSum  Metric = "sqsum"
)

// DefaultMetric is the weight used when none is configured.
const DefaultMetric = MetricSum

// Metrics lists the supported metric names.
func Metrics() []Metric {
	return []Metric{MetricSum, MetricLogSum, MetricSqSum}
}

// ParseMetric resolves a metric name. The empty string selects DefaultMetric.
func ParseMetric(name string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return DefaultMetric, nil
	case MetricSum, MetricLogSum, MetricSqSum:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (want sum, logsum or sqsum)", ErrUnknownMetric, name)
	}
}

// Weight returns the statistic selected by m.
func (m Metric) Weight(s CostStats) float64 {
	switch m {
	case MetricLogSum:
		return s.LogSum
	case MetricSqSum:
		return s.SqSum
	default:
		return s.Sum
	}
}
