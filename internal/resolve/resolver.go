// Package resolve reconciles raw adapter readings into complete per-city
// records. Every cycle each city gets one measurement per pollutant plus a
// composite AQI and a weather snapshot, regardless of which upstream
// sources were reachable: observed values win, gaps are derived from
// related observations, and anything still missing is estimated.
package resolve

import (
	"context"
	"math"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/skyshield/skyshield/internal/aqi"
	"github.com/skyshield/skyshield/internal/monitor"
	"github.com/skyshield/skyshield/internal/source"
)

// CityRecord is the complete resolved result for one city.
type CityRecord struct {
	Measurements []monitor.Measurement
	Weather      monitor.WeatherSnapshot
}

// Config holds resolver dependencies. Sources are consulted in slice
// order; earlier sources win when both report the same pollutant.
type Config struct {
	AirSources     []source.AirQualitySource
	WeatherSources []source.WeatherSource
	Thresholds     aqi.ThresholdTable
	Clock          clockwork.Clock
	Logger         zerolog.Logger
}

// Resolver applies the observed -> derived -> estimated fallback chain.
type Resolver struct {
	air        []source.AirQualitySource
	weather    []source.WeatherSource
	thresholds aqi.ThresholdTable
	estimator  *Estimator
	clock      clockwork.Clock
	log        zerolog.Logger
}

// New creates a resolver. A nil clock falls back to the real one; an
// empty threshold table falls back to the defaults.
func New(cfg Config) *Resolver {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	thresholds := cfg.Thresholds
	if len(thresholds) == 0 {
		thresholds = aqi.DefaultThresholds()
	}
	return &Resolver{
		air:        cfg.AirSources,
		weather:    cfg.WeatherSources,
		thresholds: thresholds,
		estimator:  NewEstimator(clock),
		clock:      clock,
		log:        cfg.Logger,
	}
}

// ResolveCity produces the full record for one city. It never fails:
// total source loss degrades every value to an estimate.
func (r *Resolver) ResolveCity(ctx context.Context, city monitor.City) CityRecord {
	weather := r.resolveWeather(ctx, city)
	measurements := r.resolveAirQuality(ctx, city, weather.DispersionImpact)
	return CityRecord{Measurements: measurements, Weather: weather}
}

// resolveWeather tries each weather source in order and falls back to the
// seasonal model when none responds.
func (r *Resolver) resolveWeather(ctx context.Context, city monitor.City) monitor.WeatherSnapshot {
	for _, src := range r.weather {
		reading, err := src.FetchWeather(ctx, city)
		if err != nil {
			r.log.Warn().
				Err(err).
				Str("source", src.Name()).
				Str("city", city.Key.String()).
				Str("failure_kind", string(source.KindOf(err))).
				Msg("weather source failed")
			continue
		}

		return monitor.WeatherSnapshot{
			City:             city.Key,
			Temperature:      reading.Temperature,
			Humidity:         reading.Humidity,
			Pressure:         reading.Pressure,
			WindSpeed:        reading.WindSpeed,
			CloudCover:       reading.CloudCover,
			Visibility:       reading.Visibility,
			Condition:        reading.Condition,
			DispersionImpact: aqi.DispersionImpact(reading.WindSpeed, reading.Humidity, reading.Temperature, reading.CloudCover),
			Source:           src.Name(),
			Derivation:       monitor.DerivationObserved,
			Timestamp:        r.clock.Now(),
		}
	}

	r.log.Info().Str("city", city.Key.String()).Msg("no live weather, using seasonal model")
	return r.estimator.EstimateWeather(city)
}

// resolveAirQuality merges readings across sources, then fills gaps via
// derivation and estimation until every pollutant plus the composite AQI
// is present.
func (r *Resolver) resolveAirQuality(ctx context.Context, city monitor.City, dispersion float64) []monitor.Measurement {
	observed := r.collectObserved(ctx, city)
	now := r.clock.Now()

	byPollutant := make(map[monitor.Pollutant]monitor.Measurement, len(monitor.AllPollutants)+1)

	for p, reading := range observed {
		byPollutant[p] = monitor.Measurement{
			City:       city.Key,
			Pollutant:  p,
			Value:      reading.Value,
			Unit:       reading.Unit,
			Source:     reading.source,
			Derivation: monitor.DerivationObserved,
			Timestamp:  now,
		}
	}

	// PM2.5 and composite AQI derive from each other when only one was
	// observed.
	if _, ok := byPollutant[monitor.PollutantPM25]; !ok {
		if aqiM, ok := byPollutant[monitor.PollutantAQI]; ok {
			byPollutant[monitor.PollutantPM25] = monitor.Measurement{
				City:       city.Key,
				Pollutant:  monitor.PollutantPM25,
				Value:      round1(aqi.AQIToPM25(aqiM.Value)),
				Unit:       "µg/m³",
				Source:     aqiM.Source,
				Derivation: monitor.DerivationDerived,
				Timestamp:  now,
			}
		}
	}

	for _, p := range monitor.AllPollutants {
		if _, ok := byPollutant[p]; ok {
			continue
		}
		value, unit := r.estimator.EstimatePollutant(city, p, dispersion)
		byPollutant[p] = monitor.Measurement{
			City:       city.Key,
			Pollutant:  p,
			Value:      value,
			Unit:       unit,
			Source:     EstimationModelName,
			Derivation: monitor.DerivationEstimated,
			Timestamp:  now,
		}
	}

	if _, ok := byPollutant[monitor.PollutantAQI]; !ok {
		pm := byPollutant[monitor.PollutantPM25]
		derivation := monitor.DerivationDerived
		if pm.Derivation == monitor.DerivationEstimated {
			derivation = monitor.DerivationEstimated
		}
		byPollutant[monitor.PollutantAQI] = monitor.Measurement{
			City:       city.Key,
			Pollutant:  monitor.PollutantAQI,
			Value:      float64(aqi.PM25ToAQI(pm.Value)),
			Unit:       "AQI",
			Source:     pm.Source,
			Derivation: derivation,
			Timestamp:  now,
		}
	}

	// Stable output order: individual pollutants first, composite last.
	out := make([]monitor.Measurement, 0, len(byPollutant))
	for _, p := range monitor.AllPollutants {
		out = append(out, r.classified(byPollutant[p]))
	}
	out = append(out, r.classified(byPollutant[monitor.PollutantAQI]))
	return out
}

// observedReading is a raw reading annotated with the source that won it.
type observedReading struct {
	Value  float64
	Unit   string
	source string
}

// collectObserved queries each air quality source in priority order. The
// first source to report a pollutant wins; later sources only fill
// pollutants still missing.
func (r *Resolver) collectObserved(ctx context.Context, city monitor.City) map[monitor.Pollutant]observedReading {
	out := make(map[monitor.Pollutant]observedReading)

	for _, src := range r.air {
		if len(out) == len(monitor.AllPollutants)+1 {
			break
		}
		readings, err := src.FetchAirQuality(ctx, city)
		if err != nil {
			r.log.Warn().
				Err(err).
				Str("source", src.Name()).
				Str("city", city.Key.String()).
				Str("failure_kind", string(source.KindOf(err))).
				Msg("air quality source failed")
			continue
		}
		for _, reading := range readings {
			if _, taken := out[reading.Pollutant]; taken {
				continue
			}
			out[reading.Pollutant] = observedReading{
				Value:  reading.Value,
				Unit:   reading.Unit,
				source: src.Name(),
			}
		}
	}

	return out
}

// classified stamps the health rating onto a measurement. The composite
// AQI uses the six-level category scale; pollutants use the threshold
// table.
func (r *Resolver) classified(m monitor.Measurement) monitor.Measurement {
	if m.Pollutant == monitor.PollutantAQI {
		cat := aqi.AQICategory(m.Value)
		m.Rating = cat.Rating()
		m.Description = cat.Description()
		return m
	}
	c := aqi.Classify(m.Pollutant, m.Value, r.thresholds)
	m.Rating = c.Rating
	m.Description = c.Description
	return m
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
