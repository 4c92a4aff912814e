package pipeline

import (
	"errors"

	"github.com/lucasjlepore/healthparse/export"
)

// errMissingType marks an element whose type attribute is absent or empty.
// Such elements are dropped and counted as row-local errors; a row's Type is
// never empty.
var errMissingType = errors.New("missing type attribute")

// mapRecord maps one Record element to a row. When preserveCategories is
// false, non-numeric values are discarded instead of kept as category text
// (the analytical-database sink historically had no category column).
func mapRecord(el *export.Element, preserveCategories bool) (Row, error) {
	raw := el.Attr["type"]
	if raw == "" {
		return Row{}, errMissingType
	}
	value, category := ParseValue(el.Attr["value"])
	if !preserveCategories {
		category = nil
	}
	return Row{
		Type:          NormalizeType(raw),
		Value:         value,
		ValueCategory: category,
		Unit:          optString(el.Attr["unit"]),
		StartDate:     ParseTimestamp(el.Attr["startDate"]),
		EndDate:       ParseTimestamp(el.Attr["endDate"]),
		SourceName:    optString(el.Attr["sourceName"]),
	}, nil
}

// mapWorkout maps one Workout element to a row, normalizing duration to
// minutes and distance to kilometers. When routes is non-nil and the workout
// references a route file, the starting coordinate is resolved from it.
func mapWorkout(el *export.Element, routes RouteResolver) (Row, error) {
	raw := el.Attr["workoutActivityType"]
	if raw == "" {
		return Row{}, errMissingType
	}
	row := Row{
		Type:        NormalizeType(raw),
		StartDate:   ParseTimestamp(el.Attr["startDate"]),
		EndDate:     ParseTimestamp(el.Attr["endDate"]),
		DurationMin: normalizeDuration(ParseFloat(el.Attr["duration"]), el.Attr["durationUnit"]),
		DistanceKM:  normalizeDistance(ParseFloat(el.Attr["totalDistance"]), el.Attr["totalDistanceUnit"]),
		EnergyKcal:  ParseFloat(el.Attr["totalEnergyBurned"]),
		SourceName:  optString(el.Attr["sourceName"]),
	}
	if routes != nil && el.RouteRef != "" {
		row.StartLat, row.StartLon = routes.StartPoint(el.RouteRef)
	}
	return row, nil
}
