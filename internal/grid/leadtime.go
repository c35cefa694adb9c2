package grid

import (
	"math"
	"time"
)

// ValidTimes converts lead times relative to init into valid times.
func ValidTimes(init time.Time, leads []time.Duration) []time.Time {
	out := make([]time.Time, len(leads))
	for i, l := range leads {
		out[i] = init.Add(l)
	}
	return out
}

// HoursToLeads converts fractional lead hours (as stored in model output)
// into durations, rounded to the nearest second.
func HoursToLeads(hours []float64) []time.Duration {
	out := make([]time.Duration, len(hours))
	for i, h := range hours {
		out[i] = time.Duration(math.Round(h*3600)) * time.Second
	}
	return out
}

// LeadHours is the inverse of ValidTimes: hours from init to each valid time.
func LeadHours(init time.Time, valid []time.Time) []float64 {
	out := make([]float64, len(valid))
	for i, v := range valid {
		out[i] = v.Sub(init).Hours()
	}
	return out
}
