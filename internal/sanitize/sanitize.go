// Package sanitize converts raw SODA rows into typed crash entities. Every
// function is total: malformed input becomes a nil field, never an error,
// because partial data is the norm in the source feeds and must not abort a
// batch.
package sanitize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"crashpipe/internal/domain/crash"

	"golang.org/x/exp/slog"
)

// Chicago-area bounds and plausibility ranges for validated fields.
const (
	MinLatitude  = 41.6
	MaxLatitude  = 42.1
	MinLongitude = -87.95
	MaxLongitude = -87.5

	MinAge = 0
	MaxAge = 120

	MinVehicleYear = 1900
	MaxVehicleYear = 2025
)

// Datetime layouts seen in Chicago open data, tried in order.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 03:04:05 PM",
	"01/02/2006",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

type Sanitizer struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Sanitizer {
	return &Sanitizer{log: log}
}

// String trims, collapses internal whitespace and maps null-ish tokens to
// nil. maxLen of 0 means no truncation.
func (s *Sanitizer) String(value any, maxLen int) *string {
	raw := stringify(value)
	if raw == "" {
		return nil
	}

	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil
	}

	switch strings.ToUpper(cleaned) {
	case "NULL", "N/A", "UNKNOWN", "UNK":
		return nil
	}

	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")

	if maxLen > 0 && utf8.RuneCountInString(cleaned) > maxLen {
		cleaned = string([]rune(cleaned)[:maxLen])
	}

	return &cleaned
}

// Int parses an integer, accepting "1.0"-style float strings.
func (s *Sanitizer) Int(value any) *int {
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		n := v
		return &n
	case float64:
		n := int(v)
		return &n
	}

	cleaned := s.String(value, 0)
	if cleaned == nil {
		return nil
	}

	f, err := strconv.ParseFloat(*cleaned, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

// Float parses a floating point value.
func (s *Sanitizer) Float(value any) *float64 {
	if v, ok := value.(float64); ok {
		f := v
		return &f
	}

	cleaned := s.String(value, 0)
	if cleaned == nil {
		return nil
	}

	f, err := strconv.ParseFloat(*cleaned, 64)
	if err != nil {
		return nil
	}
	return &f
}

// DateTime tries the known source layouts in order.
func (s *Sanitizer) DateTime(value any) *time.Time {
	if t, ok := value.(time.Time); ok {
		return &t
	}

	raw := strings.TrimSpace(stringify(value))
	if raw == "" {
		return nil
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}

	s.log.Debug("could not parse datetime", "value", raw)
	return nil
}

// Latitude bounds-checks against the Chicago bounding box; out-of-range
// values become nil, not an error.
func (s *Sanitizer) Latitude(value any) *float64 {
	coord := s.Float(value)
	if coord == nil {
		return nil
	}
	if *coord < MinLatitude || *coord > MaxLatitude {
		s.log.Debug("latitude out of bounds", "latitude", *coord)
		return nil
	}
	return coord
}

// Longitude bounds-checks against the Chicago bounding box.
func (s *Sanitizer) Longitude(value any) *float64 {
	coord := s.Float(value)
	if coord == nil {
		return nil
	}
	if *coord < MinLongitude || *coord > MaxLongitude {
		s.log.Debug("longitude out of bounds", "longitude", *coord)
		return nil
	}
	return coord
}

// Age bounds-checks to a plausible human age.
func (s *Sanitizer) Age(value any) *int {
	age := s.Int(value)
	if age == nil {
		return nil
	}
	if *age < MinAge || *age > MaxAge {
		s.log.Debug("age out of valid range", "age", *age)
		return nil
	}
	return age
}

// VehicleYear bounds-checks the model year.
func (s *Sanitizer) VehicleYear(value any) *int {
	year := s.Int(value)
	if year == nil {
		return nil
	}
	if *year < MinVehicleYear || *year > MaxVehicleYear {
		s.log.Debug("vehicle year out of valid range", "year", *year)
		return nil
	}
	return year
}

// RemoveDuplicateFatalities keeps the first occurrence per person_id,
// dropping repeats and keyless rows. The Vision Zero feed contains repeated
// rows.
func (s *Sanitizer) RemoveDuplicateFatalities(records []crash.Fatality) []crash.Fatality {
	seen := make(map[string]struct{}, len(records))
	unique := make([]crash.Fatality, 0, len(records))
	duplicates := 0

	for _, rec := range records {
		if rec.PersonID == nil {
			duplicates++
			continue
		}
		if _, ok := seen[*rec.PersonID]; ok {
			duplicates++
			continue
		}
		seen[*rec.PersonID] = struct{}{}
		unique = append(unique, rec)
	}

	if duplicates > 0 {
		s.log.Warn("removed duplicate fatality records",
			"duplicates", duplicates,
			"unique_records", len(unique))
	}

	return unique
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
