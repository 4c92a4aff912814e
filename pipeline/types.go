package pipeline

import "time"

// Row is one flattened observation, the unit persisted to the sink.
// Optional fields are pointers; nil means the column is NULL.
//
// Exactly one of Value / ValueCategory is set for a measurement record
// (both nil when the source value is absent). Workout rows never set
// Value or ValueCategory, and record rows never set the workout fields.
type Row struct {
	Type          string
	Value         *float64
	ValueCategory *string
	Unit          *string
	StartDate     *time.Time
	EndDate       *time.Time
	DurationMin   *float64
	DistanceKM    *float64
	EnergyKcal    *float64
	SourceName    *string
	StartLat      *float64
	StartLon      *float64
}

// Stats counts what one pipeline invocation did. It is created when the run
// starts, mutated by the driving loop only, and returned as the final result.
type Stats struct {
	Records  int64
	Workouts int64
	Skipped  int64
	Errors   int64
}

// Total returns the number of rows written (records plus workouts).
func (s *Stats) Total() int64 { return s.Records + s.Workouts }

// Sink is the append-only tabular store batches are flushed to. The pipeline
// creates the schema once up front, writes whole batches, and leaves closing
// to the caller that opened the sink.
type Sink interface {
	CreateSchema() error
	WriteBatch(rows []Row) error
	Close() error
}

// RouteResolver looks up the starting coordinate of a workout's referenced
// route file. Both return values are nil when the reference cannot be
// resolved for any reason.
type RouteResolver interface {
	StartPoint(routeRef string) (lat, lon *float64)
}
