package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lucasjlepore/healthparse/pipeline"
)

var csvHeader = []string{
	"type", "value", "value_category", "unit", "start_date", "end_date",
	"duration_min", "distance_km", "energy_kcal", "source_name",
	"start_lat", "start_lon",
}

// CSV is a plain uncompressed fallback sink. NULL columns are written as
// empty strings.
type CSV struct {
	f *os.File
	w *csv.Writer
}

// NewCSV creates the output file at path.
func NewCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}
	return &CSV{f: f, w: csv.NewWriter(f)}, nil
}

// CreateSchema writes the header row.
func (s *CSV) CreateSchema() error {
	if err := s.w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	return nil
}

// WriteBatch appends one batch and flushes it to disk.
func (s *CSV) WriteBatch(rows []pipeline.Row) error {
	for i := range rows {
		r := &rows[i]
		record := []string{
			r.Type,
			formatFloatPtr(r.Value),
			stringOrEmpty(r.ValueCategory),
			stringOrEmpty(r.Unit),
			formatTimePtr(r.StartDate),
			formatTimePtr(r.EndDate),
			formatFloatPtr(r.DurationMin),
			formatFloatPtr(r.DistanceKM),
			formatFloatPtr(r.EnergyKcal),
			stringOrEmpty(r.SourceName),
			formatFloatPtr(r.StartLat),
			formatFloatPtr(r.StartLon),
		}
		if err := s.w.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes any buffered output and closes the file.
func (s *CSV) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
