package domain

import (
	"fmt"
	"sort"
	"strings"
)

// AggregationError signals a structurally unusable portfolio (no investors,
// or an investor without holdings). It aborts the analysis.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed: %s", e.Reason)
}

// DataUnavailableError reports symbols with no usable price history. It is a
// partial-failure condition: callers exclude the symbols and continue.
type DataUnavailableError struct {
	Symbols []string
}

func (e *DataUnavailableError) Error() string {
	s := append([]string(nil), e.Symbols...)
	sort.Strings(s)
	return fmt.Sprintf("price history unavailable for %s", strings.Join(s, ", "))
}

// OptimizationFailedError signals numerical non-convergence after all retry
// attempts, or an infeasible constraint set. LastWeights carries the final
// attempted weight vector for diagnostics.
type OptimizationFailedError struct {
	Method      string
	Attempts    int
	Reason      string
	LastWeights map[string]float64
}

func (e *OptimizationFailedError) Error() string {
	return fmt.Sprintf("optimization failed: method=%s attempts=%d: %s", e.Method, e.Attempts, e.Reason)
}
