package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"

	"github.com/lucasjlepore/healthparse/gpx"
	"github.com/lucasjlepore/healthparse/pipeline"
	"github.com/lucasjlepore/healthparse/sink"
)

var (
	parquetOut     string
	duckdbOut      string
	csvOut         string
	batchSize      int
	progressEvery  int
	resolveGPS     bool
	keepCategories bool
	logFile        string
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "healthparse",
	Short: "Convert a health data XML export into a flat analytical table",
	Long: `Healthparse streams a health data export (export.xml) in one forward
pass and writes every measurement record and workout session as one row of a
flat table. Pick the sink with a subcommand: a compressed Parquet file, an
embedded DuckDB database, or plain CSV.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&batchSize, "batch-size", 0, "rows per bulk write (0 = sink default)")
	pf.IntVar(&progressEvery, "progress", pipeline.DefaultProgressInterval, "print progress every N rows")
	pf.BoolVar(&resolveGPS, "gps", false, "resolve workout starting coordinates from route files")
	pf.BoolVar(&keepCategories, "categories", true, "preserve non-numeric category values")
	pf.StringVar(&logFile, "log-file", "", "append JSON logs to this file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(parquetCmd, duckdbCmd, csvCmd)
}

var parquetCmd = &cobra.Command{
	Use:   "parquet <export.xml>",
	Short: "Write the export to a ZSTD-compressed Parquet file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, args[0], parquetOut, 500000, func(path string) (pipeline.Sink, error) {
			return sink.NewParquet(path)
		})
	},
}

var duckdbCmd = &cobra.Command{
	Use:   "duckdb <export.xml>",
	Short: "Load the export into an embedded DuckDB database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := runPipeline(cmd, args[0], duckdbOut, pipeline.DefaultBatchSize, func(path string) (pipeline.Sink, error) {
			return sink.NewDuckDB(path)
		})
		if err == nil {
			fmt.Printf("\nTo query with DuckDB:\n")
			fmt.Printf("  duckdb %s -c \"SELECT type, count(*) FROM health GROUP BY 1\"\n", duckdbOut)
		}
		return err
	},
}

var csvCmd = &cobra.Command{
	Use:   "csv <export.xml>",
	Short: "Write the export to a plain CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, args[0], csvOut, 500000, func(path string) (pipeline.Sink, error) {
			return sink.NewCSV(path)
		})
	},
}

func init() {
	parquetCmd.Flags().StringVarP(&parquetOut, "output", "o", "health.parquet", "output file path")
	duckdbCmd.Flags().StringVarP(&duckdbOut, "output", "o", "health.db", "output file path")
	csvCmd.Flags().StringVarP(&csvOut, "output", "o", "health.csv", "output file path")
}

func runPipeline(cmd *cobra.Command, source, out string, defaultBatch int, open func(string) (pipeline.Sink, error)) error {
	logger, cleanup := setupLogger()
	defer cleanup()

	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("%s not found", source)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	size := batchSize
	if size <= 0 {
		size = defaultBatch
	}

	var routes pipeline.RouteResolver
	if resolveGPS {
		routes = gpx.NewResolver(filepath.Dir(source))
	}

	s, err := open(out)
	if err != nil {
		return err
	}

	fmt.Printf("Parsing %s...\n", source)
	logger.Info("starting run",
		"source", source, "output", out,
		"batch_size", size, "gps", resolveGPS)

	stats, runErr := pipeline.Run(ctx, pipeline.Options{
		Source:                 source,
		Sink:                   s,
		Routes:                 routes,
		PreserveCategoryValues: keepCategories,
		BatchSize:              size,
		ProgressInterval:       progressEvery,
		Progress:               os.Stdout,
	})
	closeErr := s.Close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return fmt.Errorf("close sink: %w", closeErr)
	}

	logger.Info("run complete",
		"records", stats.Records, "workouts", stats.Workouts,
		"skipped", stats.Skipped, "errors", stats.Errors)
	printSummary(out, stats)
	return nil
}

func printSummary(out string, stats *pipeline.Stats) {
	fmt.Printf("\nDone! Wrote %s\n", out)
	fmt.Printf("  Records:  %d\n", stats.Records)
	fmt.Printf("  Workouts: %d\n", stats.Workouts)
	fmt.Printf("  Skipped:  %d\n", stats.Skipped)
	fmt.Printf("  Errors:   %d\n", stats.Errors)
	if fi, err := os.Stat(out); err == nil {
		fmt.Printf("  File size: %.1f MB\n", float64(fi.Size())/(1024*1024))
	}
}

// setupLogger builds a dual-output logger: text to stderr, JSON to an
// optional log file. Stderr stays quiet unless --verbose is set; the file,
// when configured, gets everything.
func setupLogger() (*slog.Logger, func()) {
	stderrLevel := slog.LevelWarn
	if verbose {
		stderrLevel = slog.LevelInfo
	}
	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: stderrLevel})

	if logFile == "" {
		return slog.New(stderrHandler), func() {}
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(stderrHandler)
		logger.Warn("failed to open log file, using stderr only", "error", err, "file", logFile)
		return logger, func() {}
	}
	fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(slogmulti.Fanout(stderrHandler, fileHandler)), func() { _ = f.Close() }
}
