package aqi

import (
	"github.com/skyshield/skyshield/internal/monitor"
)

// Threshold holds the per-pollutant health boundaries. A value equal to a
// boundary belongs to the lower (safer) band.
type Threshold struct {
	Good     float64
	Moderate float64
	Bad      float64
	Unit     string

	GoodDesc     string
	ModerateDesc string
	BadDesc      string
}

// ThresholdTable maps pollutant kinds to their health thresholds. Loaded
// once at startup and never mutated afterwards.
type ThresholdTable map[monitor.Pollutant]Threshold

// DefaultThresholds returns the US EPA-based threshold table.
func DefaultThresholds() ThresholdTable {
	return ThresholdTable{
		monitor.PollutantPM25: {
			Good: 12.0, Moderate: 35.4, Bad: 55.4, Unit: "µg/m³",
			GoodDesc:     "Good - healthy air quality",
			ModerateDesc: "Moderate - acceptable air quality",
			BadDesc:      "Unhealthy for sensitive groups",
		},
		monitor.PollutantNO2: {
			Good: 40, Moderate: 100, Bad: 200, Unit: "ppb",
			GoodDesc:     "Good - low vehicle pollution",
			ModerateDesc: "Moderate - medium NO2 levels",
			BadDesc:      "Unhealthy - high nitrogen dioxide",
		},
		monitor.PollutantO3: {
			Good: 50, Moderate: 70, Bad: 85, Unit: "ppb",
			GoodDesc:     "Good - low ozone levels",
			ModerateDesc: "Moderate - increased ozone",
			BadDesc:      "Unhealthy - high ozone levels",
		},
		monitor.PollutantCO2: {
			Good: 450, Moderate: 600, Bad: 1000, Unit: "ppm",
			GoodDesc:     "Excellent - fresh outdoor air",
			ModerateDesc: "Moderate - typical urban levels",
			BadDesc:      "Poor - elevated CO2 levels",
		},
	}
}

// Classification is the result of classifying a pollutant value.
type Classification struct {
	Rating      monitor.Rating
	Band        int // 0=good .. 3=very unhealthy, -1 unknown pollutant
	Description string
}

// Classify maps a pollutant value to its health classification using the
// given threshold table. Unknown pollutant kinds yield RatingUnknown; the
// function never fails.
func Classify(p monitor.Pollutant, value float64, thresholds ThresholdTable) Classification {
	t, ok := thresholds[p]
	if !ok {
		return Classification{Rating: monitor.RatingUnknown, Band: -1, Description: "No rating available"}
	}

	switch {
	case value <= t.Good:
		return Classification{Rating: monitor.RatingGood, Band: 0, Description: t.GoodDesc}
	case value <= t.Moderate:
		return Classification{Rating: monitor.RatingModerate, Band: 1, Description: t.ModerateDesc}
	case value <= t.Bad:
		return Classification{Rating: monitor.RatingUnhealthy, Band: 2, Description: t.BadDesc}
	default:
		return Classification{Rating: monitor.RatingVeryUnhealthy, Band: 3, Description: "Dangerous pollution levels"}
	}
}

// Category is a band of the six-level composite US AQI scale.
type Category string

const (
	CategoryGood               Category = "GOOD"
	CategoryModerate           Category = "MODERATE"
	CategoryUnhealthySensitive Category = "UNHEALTHY_FOR_SENSITIVE_GROUPS"
	CategoryUnhealthy          Category = "UNHEALTHY"
	CategoryVeryUnhealthy      Category = "VERY_UNHEALTHY"
	CategoryHazardous          Category = "HAZARDOUS"
)

// AQICategory maps a composite AQI value to its category.
func AQICategory(aqi float64) Category {
	switch {
	case aqi <= 50:
		return CategoryGood
	case aqi <= 100:
		return CategoryModerate
	case aqi <= 150:
		return CategoryUnhealthySensitive
	case aqi <= 200:
		return CategoryUnhealthy
	case aqi <= 300:
		return CategoryVeryUnhealthy
	default:
		return CategoryHazardous
	}
}

// Description returns the human-readable label for the category.
func (c Category) Description() string {
	switch c {
	case CategoryGood:
		return "Good"
	case CategoryModerate:
		return "Moderate"
	case CategoryUnhealthySensitive:
		return "Unhealthy for Sensitive Groups"
	case CategoryUnhealthy:
		return "Unhealthy"
	case CategoryVeryUnhealthy:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}

// Rating collapses the six AQI categories onto the four-band measurement
// rating used across the data model.
func (c Category) Rating() monitor.Rating {
	switch c {
	case CategoryGood:
		return monitor.RatingGood
	case CategoryModerate:
		return monitor.RatingModerate
	case CategoryUnhealthySensitive, CategoryUnhealthy:
		return monitor.RatingUnhealthy
	default:
		return monitor.RatingVeryUnhealthy
	}
}
