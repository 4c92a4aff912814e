package sink

import (
	"fmt"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/lucasjlepore/healthparse/pipeline"
)

type parquetRow struct {
	Type          string   `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Value         *float64 `parquet:"name=value, type=DOUBLE, repetitiontype=OPTIONAL"`
	ValueCategory *string  `parquet:"name=value_category, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Unit          *string  `parquet:"name=unit, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	StartDate     *int64   `parquet:"name=start_date, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=OPTIONAL"`
	EndDate       *int64   `parquet:"name=end_date, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=OPTIONAL"`
	DurationMin   *float64 `parquet:"name=duration_min, type=DOUBLE, repetitiontype=OPTIONAL"`
	DistanceKM    *float64 `parquet:"name=distance_km, type=DOUBLE, repetitiontype=OPTIONAL"`
	EnergyKcal    *float64 `parquet:"name=energy_kcal, type=DOUBLE, repetitiontype=OPTIONAL"`
	SourceName    *string  `parquet:"name=source_name, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	StartLat      *float64 `parquet:"name=start_lat, type=DOUBLE, repetitiontype=OPTIONAL"`
	StartLon      *float64 `parquet:"name=start_lon, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// Parquet writes batches as successive row groups of one ZSTD-compressed
// Parquet file, opened once per run.
type Parquet struct {
	fw source.ParquetFile
	pw *writer.ParquetWriter
}

// NewParquet creates the output file at path.
func NewParquet(path string) (*Parquet, error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_ZSTD
	return &Parquet{fw: fw, pw: pw}, nil
}

// CreateSchema is a no-op: the schema is fixed by the row struct tags when
// the writer is opened.
func (s *Parquet) CreateSchema() error { return nil }

// WriteBatch appends one batch and closes it out as its own row group.
func (s *Parquet) WriteBatch(rows []pipeline.Row) error {
	for i := range rows {
		if err := s.pw.Write(toParquetRow(&rows[i])); err != nil {
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	return s.pw.Flush(true)
}

// Close finalizes the file footer.
func (s *Parquet) Close() error {
	if err := s.pw.WriteStop(); err != nil {
		_ = s.fw.Close()
		return fmt.Errorf("finalize parquet: %w", err)
	}
	return s.fw.Close()
}

func toParquetRow(r *pipeline.Row) parquetRow {
	return parquetRow{
		Type:          r.Type,
		Value:         r.Value,
		ValueCategory: r.ValueCategory,
		Unit:          r.Unit,
		StartDate:     millis(r.StartDate),
		EndDate:       millis(r.EndDate),
		DurationMin:   r.DurationMin,
		DistanceKM:    r.DistanceKM,
		EnergyKcal:    r.EnergyKcal,
		SourceName:    r.SourceName,
		StartLat:      r.StartLat,
		StartLon:      r.StartLon,
	}
}

func millis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
