// Package rowio adapts lead sheets to the batch pipeline: sources
// materialize a rectangular header+rows table from CSV, XLSX, or Google
// Sheets, and sinks write one result record per input row. Only the
// rectangular shape is contract; cell semantics belong to the mapper.
package rowio

import "context"

// Table is a materialized input range: one header row plus data rows.
// Rows may be ragged; normalization happens downstream per row.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Source yields the full input table. Batch sizing and resume indexes
// need the whole row set upfront, so sources materialize rather than
// stream.
type Source interface {
	Read(ctx context.Context) (*Table, error)
}

// Sink receives the result header and one record per input row, in row
// order.
type Sink interface {
	Write(ctx context.Context, headers []string, records [][]string) error
}
