package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	schemaCreated bool
	closed        bool
	batches       [][]Row
	failBatch     int // 1-based batch number to reject; 0 never fails
}

func (m *memorySink) CreateSchema() error {
	m.schemaCreated = true
	return nil
}

func (m *memorySink) WriteBatch(rows []Row) error {
	if m.failBatch > 0 && len(m.batches)+1 == m.failBatch {
		return errors.New("sink rejected batch")
	}
	cp := make([]Row, len(rows))
	copy(cp, rows)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func (m *memorySink) rowCount() int {
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

const runExport = `<?xml version="1.0" encoding="UTF-8"?>
<HealthData>
 <Record type="HKQuantityTypeIdentifierHeartRate" value="72" unit="count/min" startDate="2024-01-15 08:30:00 -0600"/>
 <Record type="HKQuantityTypeIdentifierStepCount" value="1024" unit="count"/>
 <Record value="5"/>
 <Record type="HKCategoryTypeIdentifierSleepAnalysis" value="HKCategoryValueSleepAnalysisInBed"/>
 <Workout workoutActivityType="HKWorkoutActivityTypeRunning" duration="45" durationUnit="min" totalDistance="3.1" totalDistanceUnit="mi"/>
 <ActivitySummary dateComponents="2024-01-15"/>
 <Correlation type="HKCorrelationTypeIdentifierBloodPressure"/>
</HealthData>`

func TestRunReaderCountsAndBatches(t *testing.T) {
	sink := &memorySink{}
	var progress bytes.Buffer

	stats, err := RunReader(context.Background(), strings.NewReader(runExport), Options{
		Sink:                   sink,
		PreserveCategoryValues: true,
		BatchSize:              2,
		ProgressInterval:       1,
		Progress:               &progress,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Records)
	assert.Equal(t, int64(1), stats.Workouts)
	assert.Equal(t, int64(2), stats.Skipped)
	// The typeless Record is the only row-local error, and it does not
	// abort processing of later elements.
	assert.Equal(t, int64(1), stats.Errors)

	require.True(t, sink.schemaCreated)
	assert.Equal(t, 4, sink.rowCount())
	// Two full batches of two; nothing left for a partial flush.
	require.Len(t, sink.batches, 2)
	assert.Len(t, sink.batches[0], 2)
	assert.Len(t, sink.batches[1], 2)

	assert.Contains(t, progress.String(), "Processed 4 rows (3 records, 1 workouts, 2 skipped)")
}

func TestRunReaderFinalPartialFlush(t *testing.T) {
	sink := &memorySink{}
	stats, err := RunReader(context.Background(), strings.NewReader(runExport), Options{
		Sink:      sink,
		BatchSize: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total())
	require.Len(t, sink.batches, 2)
	assert.Len(t, sink.batches[0], 3)
	assert.Len(t, sink.batches[1], 1)
}

func TestRunReaderEmptyDocument(t *testing.T) {
	sink := &memorySink{}
	stats, err := RunReader(context.Background(), strings.NewReader(`<HealthData/>`), Options{Sink: sink})
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total())
	assert.True(t, sink.schemaCreated)
	// End-of-stream flush of an empty batch is a no-op.
	assert.Empty(t, sink.batches)
}

func TestRunReaderSinkFailureAbortsRun(t *testing.T) {
	sink := &memorySink{failBatch: 1}
	_, err := RunReader(context.Background(), strings.NewReader(runExport), Options{
		Sink:      sink,
		BatchSize: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write batch")
	assert.Empty(t, sink.batches)
}

func TestRunReaderRequiresSink(t *testing.T) {
	_, err := RunReader(context.Background(), strings.NewReader(runExport), Options{})
	require.Error(t, err)
}

func TestRunReaderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memorySink{}
	_, err := RunReader(ctx, strings.NewReader(runExport), Options{Sink: sink, BatchSize: 100})
	require.ErrorIs(t, err, context.Canceled)
	// The pending batch is discarded whole, never partially written.
	assert.Empty(t, sink.batches)
}

func TestRunReaderCategoryValuesDiscardedWhenDisabled(t *testing.T) {
	sink := &memorySink{}
	_, err := RunReader(context.Background(), strings.NewReader(runExport), Options{
		Sink:                   sink,
		PreserveCategoryValues: false,
	})
	require.NoError(t, err)
	for _, batch := range sink.batches {
		for _, row := range batch {
			assert.Nil(t, row.ValueCategory)
		}
	}
}

func TestRunReaderIdempotentCounts(t *testing.T) {
	first := &memorySink{}
	second := &memorySink{}

	statsA, err := RunReader(context.Background(), strings.NewReader(runExport), Options{Sink: first, PreserveCategoryValues: true})
	require.NoError(t, err)
	statsB, err := RunReader(context.Background(), strings.NewReader(runExport), Options{Sink: second, PreserveCategoryValues: true})
	require.NoError(t, err)

	assert.Equal(t, *statsA, *statsB)
	assert.Equal(t, first.rowCount(), second.rowCount())
}

func TestRunReaderMalformedDocument(t *testing.T) {
	sink := &memorySink{}
	_, err := RunReader(context.Background(), strings.NewReader(`<HealthData><Record type="x"`), Options{Sink: sink})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read export")
}

func TestRunMissingSource(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Source: "/nonexistent/export.xml",
		Sink:   &memorySink{},
	})
	require.Error(t, err)
}
