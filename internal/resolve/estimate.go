package resolve

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/skyshield/skyshield/internal/monitor"
)

// EstimationModelName tags values synthesized by the estimation model.
const EstimationModelName = "estimation_model"

// Pollutant model constants. Base levels reflect typical North American
// urban background concentrations; per-city offsets encode relative
// traffic and industrial density.
const (
	pm25Base          = 15.0
	pm25DefaultOffset = 7.0
	pm25RushBump      = 5.0

	co2Base          = 420.0
	co2DefaultOffset = 20.0
	co2RushBump      = 15.0

	no2Base         = 18.0
	no2OffsetFactor = 0.8
	no2RushBump     = 7.0

	o3Base       = 32.0
	o3MiddayBump = 11.0
)

var cityPM25Offsets = map[string]float64{
	"New York":    8,
	"Los Angeles": 12,
	"Chicago":     6,
	"Toronto":     5,
	"Vancouver":   3,
	"Mexico City": 18,
	"Montreal":    4,
	"Houston":     9,
}

var cityCO2Offsets = map[string]float64{
	"New York":    25,
	"Los Angeles": 30,
	"Chicago":     20,
	"Toronto":     15,
	"Vancouver":   10,
	"Mexico City": 35,
	"Montreal":    18,
	"Houston":     22,
}

var cityTempAdjustments = map[string]float64{
	"Los Angeles": 8,
	"Mexico City": 5,
	"Houston":     7,
	"Vancouver":   -2,
	"Toronto":     -3,
	"Montreal":    -4,
}

// Estimator synthesizes pollutant and weather values for cities where no
// adapter produced data. All outputs are deterministic for a given city
// and clock reading.
type Estimator struct {
	clock clockwork.Clock
}

// NewEstimator returns an estimator driven by the given clock. A nil
// clock falls back to the real one.
func NewEstimator(clock clockwork.Clock) *Estimator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Estimator{clock: clock}
}

// EstimatePollutant returns a modeled concentration and unit for the
// pollutant in the given city. The dispersion score couples the PM2.5
// model to current weather: stagnant air accumulates particulates.
func (e *Estimator) EstimatePollutant(city monitor.City, p monitor.Pollutant, dispersion float64) (float64, string) {
	local := e.clock.Now().In(city.Location())
	hour := local.Hour()
	rush := (hour >= 7 && hour <= 9) || (hour >= 16 && hour <= 18)

	switch p {
	case monitor.PollutantPM25:
		v := pm25Base + cityOffset(cityPM25Offsets, city, pm25DefaultOffset)
		if rush {
			v += pm25RushBump
		}
		switch {
		case dispersion > 70:
			v += 8
		case dispersion > 50:
			v += 4
		}
		return v, "µg/m³"

	case monitor.PollutantCO2:
		v := co2Base + cityOffset(cityCO2Offsets, city, co2DefaultOffset)
		if rush {
			v += co2RushBump
		}
		return v, "ppm"

	case monitor.PollutantNO2:
		v := no2Base + no2OffsetFactor*cityOffset(cityPM25Offsets, city, pm25DefaultOffset)
		if rush {
			v += no2RushBump
		}
		return v, "ppb"

	case monitor.PollutantO3:
		v := o3Base
		if hour >= 10 && hour <= 16 {
			v += o3MiddayBump
		}
		return v, "ppb"

	default:
		return 0, ""
	}
}

type season int

const (
	seasonWinter season = iota
	seasonSpring
	seasonSummer
	seasonFall
)

func seasonOf(m time.Month) season {
	switch m {
	case time.December, time.January, time.February:
		return seasonWinter
	case time.March, time.April, time.May:
		return seasonSpring
	case time.June, time.July, time.August:
		return seasonSummer
	default:
		return seasonFall
	}
}

// EstimateWeather returns a modeled weather snapshot for a city with no
// live observation: seasonal base temperature by country, a day/night
// swing, a fixed per-city adjustment, and a season-typical dispersion
// impact.
func (e *Estimator) EstimateWeather(city monitor.City) monitor.WeatherSnapshot {
	now := e.clock.Now()
	local := now.In(city.Location())
	s := seasonOf(local.Month())
	coldClimate := city.Key.Country == "Canada"

	var temp float64
	switch s {
	case seasonWinter:
		temp = 10
		if coldClimate {
			temp = -5
		}
	case seasonSpring:
		temp = 20
		if coldClimate {
			temp = 10
		}
	case seasonSummer:
		temp = 30
		if coldClimate {
			temp = 25
		}
	case seasonFall:
		temp = 22
		if coldClimate {
			temp = 15
		}
	}

	if hour := local.Hour(); hour >= 6 && hour < 18 {
		temp += 5
	} else {
		temp -= 5
	}
	temp += cityTempAdjustments[city.Key.City]

	condition := "Partly Cloudy"
	impact := 45.0
	switch s {
	case seasonWinter:
		condition = "Cloudy"
		impact = 65
	case seasonSummer:
		condition = "Clear"
		impact = 25
	}

	return monitor.WeatherSnapshot{
		City:             city.Key,
		Temperature:      temp,
		Humidity:         65,
		Pressure:         1013,
		WindSpeed:        3.5,
		CloudCover:       seasonCloudCover(s),
		Visibility:       10000,
		Condition:        condition,
		DispersionImpact: impact,
		Source:           EstimationModelName,
		Derivation:       monitor.DerivationEstimated,
		Timestamp:        now,
	}
}

func seasonCloudCover(s season) float64 {
	switch s {
	case seasonWinter:
		return 75
	case seasonSummer:
		return 20
	default:
		return 50
	}
}

func cityOffset(table map[string]float64, city monitor.City, fallback float64) float64 {
	if v, ok := table[city.Key.City]; ok {
		return v
	}
	return fallback
}
