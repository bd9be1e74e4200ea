// Package types provides shared type definitions for seqweight.
//
// These are the value types passed between the parser, the indexer, the
// partitioner and the storage layer.
//
// # Cost Statistics
//
// CostStats holds three running sums over the sequence lengths n of a file:
//
//	stats := types.CostStats{}
//	stats.Add(120) // Sum += 120, LogSum += 120·ln(120), SqSum += 120²
//
// Which sum is used as the file's weight is a configuration decision,
// expressed as a Metric:
//
//	m, err := types.ParseMetric("sqsum")
//	weight := m.Weight(stats)
//
// # Errors
//
// Two error families are distinguished by how far they propagate:
//
//   - *ParseError: the file content is not indexable (zero-length record,
//     foreign alphabet, no records, malformed). Recorded per file; the
//     batch continues.
//   - *PreconditionError: a call was made with invalid arguments (group
//     count below 2, negative or NaN weight). The call fails as a whole.
//
// Anything else is an infrastructure failure and aborts the run.
//
//	var pe *types.ParseError
//	if errors.As(err, &pe) && errors.Is(err, types.ErrZeroLength) {
//	    log.Printf("record %d is empty", pe.Record)
//	}
package types
