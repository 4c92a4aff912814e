// Package sink provides the tabular stores the pipeline flushes batches
// into: a compressed Parquet file, an embedded DuckDB database, and a plain
// CSV fallback. All three share the same column set so a run is portable
// across sinks.
package sink

import "github.com/lucasjlepore/healthparse/pipeline"

var (
	_ pipeline.Sink = (*Parquet)(nil)
	_ pipeline.Sink = (*DuckDB)(nil)
	_ pipeline.Sink = (*CSV)(nil)
)
