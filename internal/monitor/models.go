// Package monitor defines the core data model for the SkyShield
// collection cycle: measurements, weather snapshots, and the per-cycle
// collection snapshot published by the scheduler.
package monitor

import (
	"fmt"
	"time"
)

// Pollutant identifies a measured pollutant kind.
type Pollutant string

const (
	PollutantPM25 Pollutant = "PM2_5"
	PollutantNO2  Pollutant = "NO2"
	PollutantO3   Pollutant = "O3"
	PollutantCO2  Pollutant = "CO2"

	// PollutantAQI is the composite US AQI value, carried alongside the
	// individual pollutant concentrations.
	PollutantAQI Pollutant = "US_AQI"
)

// AllPollutants lists every pollutant a city record must carry.
// The resolver guarantees one measurement per entry each cycle.
var AllPollutants = []Pollutant{PollutantPM25, PollutantNO2, PollutantO3, PollutantCO2}

// Derivation marks how a value was obtained.
type Derivation string

const (
	// DerivationObserved means the value came directly from a live adapter.
	DerivationObserved Derivation = "observed"

	// DerivationDerived means the value was computed from another observed
	// value (AQI from PM2.5 or vice versa).
	DerivationDerived Derivation = "derived"

	// DerivationEstimated means no adapter had data and the value was
	// synthesized from the estimation model.
	DerivationEstimated Derivation = "estimated"
)

// Rating is the discrete health classification of a measurement.
type Rating string

const (
	RatingGood          Rating = "GOOD"
	RatingModerate      Rating = "MODERATE"
	RatingUnhealthy     Rating = "UNHEALTHY"
	RatingVeryUnhealthy Rating = "VERY_UNHEALTHY"
	RatingUnknown       Rating = "UNKNOWN"
)

// CityKey uniquely identifies a monitored location.
type CityKey struct {
	City    string
	Country string
}

// String returns the "City, Country" form used in logs and sources.
func (k CityKey) String() string {
	return k.City + ", " + k.Country
}

// City describes a configured monitoring location.
type City struct {
	Key      CityKey
	State    string
	Lat      float64
	Lon      float64
	Timezone string
}

// Location returns the city's time.Location, falling back to UTC when the
// configured timezone cannot be loaded.
func (c City) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Measurement is a single reconciled pollutant value for a city.
// Immutable once created.
type Measurement struct {
	City        CityKey
	Pollutant   Pollutant
	Value       float64
	Unit        string
	Source      string
	Rating      Rating
	Description string
	Derivation  Derivation
	Timestamp   time.Time
}

// WeatherSnapshot is the reconciled weather record for a city.
// DispersionImpact is the 0-100 score of how strongly current conditions
// trap pollutants (higher = worse dispersion). Immutable once created.
type WeatherSnapshot struct {
	City             CityKey
	Temperature      float64 // °C
	Humidity         float64 // percent
	Pressure         float64 // hPa
	WindSpeed        float64 // m/s
	CloudCover       float64 // percent
	Visibility       float64 // meters
	Condition        string
	DispersionImpact float64
	Source           string
	Derivation       Derivation
	Timestamp        time.Time
}

// CollectionSnapshot is the output of one collection cycle. It is created
// by the aggregator, published atomically by the scheduler, and treated as
// read-only afterwards; the next cycle supersedes it rather than mutating.
type CollectionSnapshot struct {
	Sequence     uint64
	CollectedAt  time.Time
	Measurements []Measurement
	Weather      map[CityKey]WeatherSnapshot
}

// CityMeasurements returns the measurements belonging to one city, in
// collection order.
func (s *CollectionSnapshot) CityMeasurements(key CityKey) []Measurement {
	var out []Measurement
	for _, m := range s.Measurements {
		if m.City == key {
			out = append(out, m)
		}
	}
	return out
}

// CityAQI returns the composite AQI measurement for a city, if present.
func (s *CollectionSnapshot) CityAQI(key CityKey) (Measurement, bool) {
	for _, m := range s.Measurements {
		if m.City == key && m.Pollutant == PollutantAQI {
			return m, true
		}
	}
	return Measurement{}, false
}

// Summary aggregates region-wide statistics over one snapshot.
type Summary struct {
	Measurements   int
	Cities         int
	EstimatedCount int

	AvgAQI float64
	MaxAQI float64
	MinAQI float64

	AvgDispersion   float64
	PoorDispersion  int // cities with dispersion impact > 60
	UnhealthyCities int // cities rated UNHEALTHY or worse on any pollutant
}

// Summarize computes region-wide statistics for the snapshot.
func (s *CollectionSnapshot) Summarize() Summary {
	sum := Summary{
		Measurements: len(s.Measurements),
		Cities:       len(s.Weather),
	}

	unhealthy := make(map[CityKey]bool)
	var aqiTotal float64
	aqiCount := 0
	for _, m := range s.Measurements {
		if m.Derivation == DerivationEstimated {
			sum.EstimatedCount++
		}
		if m.Rating == RatingUnhealthy || m.Rating == RatingVeryUnhealthy {
			unhealthy[m.City] = true
		}
		if m.Pollutant != PollutantAQI {
			continue
		}
		aqiCount++
		aqiTotal += m.Value
		if aqiCount == 1 || m.Value > sum.MaxAQI {
			sum.MaxAQI = m.Value
		}
		if aqiCount == 1 || m.Value < sum.MinAQI {
			sum.MinAQI = m.Value
		}
	}
	if aqiCount > 0 {
		sum.AvgAQI = aqiTotal / float64(aqiCount)
	}
	sum.UnhealthyCities = len(unhealthy)

	var dispTotal float64
	for _, w := range s.Weather {
		dispTotal += w.DispersionImpact
		if w.DispersionImpact > 60 {
			sum.PoorDispersion++
		}
	}
	if len(s.Weather) > 0 {
		sum.AvgDispersion = dispTotal / float64(len(s.Weather))
	}

	return sum
}

// Validate checks that every measurement and weather entry references a
// configured city.
func (s *CollectionSnapshot) Validate(cities []City) error {
	known := make(map[CityKey]bool, len(cities))
	for _, c := range cities {
		known[c.Key] = true
	}
	for _, m := range s.Measurements {
		if !known[m.City] {
			return fmt.Errorf("measurement references unconfigured city %q", m.City)
		}
	}
	for key := range s.Weather {
		if !known[key] {
			return fmt.Errorf("weather references unconfigured city %q", key)
		}
	}
	return nil
}
