// Package activity maps provider-native activity records onto the canonical
// Activity the client application consumes.
package activity

import (
	"log"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"runimate-gateway/internal/provider"
	"runimate-gateway/internal/units"
)

type Activity struct {
	Date     string       `json:"date"`
	Km       string       `json:"km"`
	TimeSec  int64        `json:"timeSec"`
	PaceSec  float64      `json:"paceSec"`
	Provider provider.Tag `json:"provider"`
}

// fields names the JSON keys a provider uses for the values we read.
type fields struct {
	StartTime string
	Distance  string
	Duration  string
}

var providerFields = map[provider.Tag][]fields{
	provider.Garmin: {{StartTime: "startTimeLocal", Distance: "distance", Duration: "duration"}},
	provider.Strava: {{StartTime: "start_date_local", Distance: "distance", Duration: "moving_time"}},
}

// Unknown providers get both key sets tried in order.
var fallbackFields = []fields{
	providerFields[provider.Garmin][0],
	providerFields[provider.Strava][0],
}

const dateLength = 10

// Normalize converts one raw record. It never fails: a missing or malformed
// field falls back to its zero value so one bad record cannot abort a batch.
func Normalize(raw provider.RawActivity, tag provider.Tag) Activity {
	keys, ok := providerFields[tag]
	if !ok {
		keys = fallbackFields
	}

	var missing []string
	start := lookup(raw, keys, func(f fields) string { return f.StartTime })
	if !start.Exists() {
		missing = append(missing, "start time")
	}
	distance := lookup(raw, keys, func(f fields) string { return f.Distance })
	if !distance.Exists() {
		missing = append(missing, "distance")
	}
	duration := lookup(raw, keys, func(f fields) string { return f.Duration })
	if !duration.Exists() {
		missing = append(missing, "duration")
	}
	if len(missing) > 0 {
		log.Printf("normalize: %s activity missing %s, using defaults", tag, strings.Join(missing, ", "))
	}

	km := units.MetersToKm(nonNegative(distance.Float()))
	timeSec := int64(math.Round(nonNegative(duration.Float())))

	return Activity{
		Date:     FormatDate(start.String()),
		Km:       units.FormatKm(km),
		TimeSec:  timeSec,
		PaceSec:  units.PaceSecondsPerKm(float64(timeSec), km),
		Provider: tag,
	}
}

// NormalizeAll normalizes each record independently. The result is never nil.
func NormalizeAll(raws []provider.RawActivity, tag provider.Tag) []Activity {
	out := make([]Activity, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw, tag))
	}
	return out
}

// FormatDate keeps the first ten characters of a provider timestamp and
// swaps '-' for '.', so "2024-06-01 07:00:00" becomes "2024.06.01". Short or
// malformed input is transformed as-is rather than rejected.
func FormatDate(s string) string {
	end := 0
	for n := 0; n < dateLength && end < len(s); n++ {
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
	}
	return strings.ReplaceAll(s[:end], "-", ".")
}

func lookup(raw provider.RawActivity, keys []fields, key func(fields) string) gjson.Result {
	for _, f := range keys {
		if res := gjson.GetBytes(raw, key(f)); res.Exists() && res.Type != gjson.Null {
			return res
		}
	}
	return gjson.Result{}
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
