package pipeline

import (
	"strconv"
	"strings"
	"time"
)

// Vendor prefixes stripped from raw type identifiers, checked in order.
// Unknown prefixes pass through unchanged so future types still produce rows.
var typePrefixes = []string{
	"HKQuantityTypeIdentifier",
	"HKCategoryTypeIdentifier",
	"HKDataType",
	"HKWorkoutActivityType",
}

const workoutTypePrefix = "HKWorkoutActivityType"

// Category-value prefixes, most specific first so the sleep-analysis prefix
// wins over the generic HKCategoryValue fallback.
var categoryPrefixes = []string{
	"HKCategoryValueSleepAnalysis",
	"HKCategoryValueAppleStandHour",
	"HKCategoryValueEnvironmentalAudioExposureEvent",
	"HKCategoryValue",
}

const milesToKM = 1.60934

// NormalizeType strips the vendor prefix from a raw type identifier.
// Workout activity types keep a "Workout" marker so they never collide with
// measurement types sharing the same suffix:
//
//	HKQuantityTypeIdentifierHeartRate -> HeartRate
//	HKWorkoutActivityTypeRunning      -> WorkoutRunning
func NormalizeType(raw string) string {
	for _, prefix := range typePrefixes {
		if strings.HasPrefix(raw, prefix) {
			rest := raw[len(prefix):]
			if prefix == workoutTypePrefix {
				return "Workout" + rest
			}
			return rest
		}
	}
	return raw
}

// NormalizeCategoryValue strips the vendor prefix from a categorical value,
// e.g. HKCategoryValueSleepAnalysisAsleepCore -> AsleepCore.
func NormalizeCategoryValue(raw string) string {
	for _, prefix := range categoryPrefixes {
		if strings.HasPrefix(raw, prefix) {
			return raw[len(prefix):]
		}
	}
	return raw
}

// ParseValue disambiguates a raw value attribute: numbers become the numeric
// value, anything else becomes a normalized category value, and empty input
// yields neither.
func ParseValue(raw string) (*float64, *string) {
	if raw == "" {
		return nil, nil
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return &v, nil
	}
	category := NormalizeCategoryValue(raw)
	return nil, &category
}

// Source timestamps look like "2024-01-15 08:30:00 -0600". Only the first
// 19 characters are parsed; the offset suffix is discarded, not applied.
const timestampLayout = "2006-01-02 15:04:05"

// ParseTimestamp parses a source timestamp to second precision. Malformed or
// empty input yields nil, never an error.
func ParseTimestamp(raw string) *time.Time {
	if len(raw) < len(timestampLayout) {
		return nil
	}
	t, err := time.Parse(timestampLayout, raw[:len(timestampLayout)])
	if err != nil {
		return nil
	}
	return &t
}

// ParseFloat parses a numeric attribute, yielding nil for empty or
// unparseable input.
func ParseFloat(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// normalizeDuration converts a workout duration to minutes. The source may
// report seconds, signalled by the paired unit string.
func normalizeDuration(d *float64, unit string) *float64 {
	if d == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(unit), "sec") {
		minutes := *d / 60
		return &minutes
	}
	return d
}

// normalizeDistance converts a workout distance to kilometers. The source
// may report miles, signalled by the paired unit string.
func normalizeDistance(d *float64, unit string) *float64 {
	if d == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(unit), "mi") {
		km := *d * milesToKM
		return &km
	}
	return d
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
