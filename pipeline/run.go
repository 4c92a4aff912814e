// Package pipeline converts a streamed health data export into batches of
// flat rows and flushes them to a pluggable sink. One pipeline serves every
// output variant; the differences (sink, GPS resolution, category handling)
// live in Options.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lucasjlepore/healthparse/export"
)

// Default tuning values. Sinks with cheaper bulk writes benefit from a
// larger batch; the CLI overrides per sink.
const (
	DefaultBatchSize        = 50000
	DefaultProgressInterval = 100000
)

// Options configures one pipeline run.
type Options struct {
	// Source is the path of the export document. Used by Run; RunReader
	// takes an already-open stream instead.
	Source string

	// Sink receives the normalized row batches. Required. The caller keeps
	// ownership and must Close it after the run.
	Sink Sink

	// Routes resolves workout route references to starting coordinates.
	// Nil disables GPS resolution.
	Routes RouteResolver

	// PreserveCategoryValues keeps non-numeric record values as normalized
	// category text. When false the value_category column stays NULL.
	PreserveCategoryValues bool

	// BatchSize is the number of rows per bulk write.
	BatchSize int

	// ProgressInterval is how many rows pass between progress lines.
	ProgressInterval int

	// Progress receives human-readable progress lines. Nil discards them.
	Progress io.Writer
}

// Run streams the export at opts.Source into opts.Sink and returns the run's
// counters. Malformed elements are dropped and counted, never fatal; only a
// missing source, a schema failure, or a rejected bulk write aborts the run.
func Run(ctx context.Context, opts Options) (*Stats, error) {
	sc, err := export.Open(opts.Source)
	if err != nil {
		return nil, err
	}
	defer sc.Close()
	return run(ctx, sc, opts)
}

// RunReader runs the pipeline over an already-open document stream.
func RunReader(ctx context.Context, r io.Reader, opts Options) (*Stats, error) {
	return run(ctx, export.NewScanner(r), opts)
}

func run(ctx context.Context, sc *export.Scanner, opts Options) (*Stats, error) {
	if opts.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}

	if err := opts.Sink.CreateSchema(); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	stats := &Stats{}
	batch := newBatchWriter(opts.Sink, opts.BatchSize)
	started := time.Now()
	var lastProgress int64

	for sc.Next() {
		// Checked between elements so an interrupted run stops promptly;
		// the pending batch is discarded whole, never written partially.
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		el := sc.Element()
		switch el.Tag {
		case export.TagRecord:
			row, err := mapRecord(el, opts.PreserveCategoryValues)
			if err != nil {
				stats.Errors++
				continue
			}
			if err := batch.Add(row); err != nil {
				return stats, err
			}
			stats.Records++
		case export.TagWorkout:
			row, err := mapWorkout(el, opts.Routes)
			if err != nil {
				stats.Errors++
				continue
			}
			if err := batch.Add(row); err != nil {
				return stats, err
			}
			stats.Workouts++
		default:
			stats.Skipped++
		}

		if stats.Total()-lastProgress >= int64(opts.ProgressInterval) {
			printProgress(opts.Progress, stats, started)
			lastProgress = stats.Total()
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read export: %w", err)
	}

	if err := batch.Flush(); err != nil {
		return stats, err
	}
	printProgress(opts.Progress, stats, started)
	return stats, nil
}

func printProgress(out io.Writer, stats *Stats, started time.Time) {
	elapsed := time.Since(started).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(stats.Total()) / elapsed
	}
	fmt.Fprintf(out, "  Processed %d rows (%d records, %d workouts, %d skipped) in %.1fs (%.0f rows/sec)\n",
		stats.Total(), stats.Records, stats.Workouts, stats.Skipped, elapsed, rate)
}
