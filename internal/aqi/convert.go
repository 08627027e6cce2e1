// Package aqi provides the deterministic conversion and classification
// math for air quality data: US AQI <-> PM2.5 concentration mapping,
// pollutant health classification, and weather dispersion scoring.
package aqi

import "math"

// breakpoint is one segment of the EPA piecewise-linear AQI scale for
// PM2.5. Concentrations are µg/m³, indices are unitless AQI points.
type breakpoint struct {
	concLow  float64
	concHigh float64
	aqiLow   float64
	aqiHigh  float64
}

// pm25Breakpoints is the full EPA PM2.5 table up to 500 AQI.
var pm25Breakpoints = []breakpoint{
	{0.0, 12.0, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 500.4, 301, 500},
}

// AQIToPM25 converts a US AQI value to a PM2.5 concentration in µg/m³.
// Inputs outside [0, 500] are clamped to the nearest boundary; a
// monitoring cycle never fails on out-of-range upstream data.
func AQIToPM25(aqi float64) float64 {
	if aqi < 0 {
		aqi = 0
	}
	if aqi > 500 {
		aqi = 500
	}

	for _, bp := range pm25Breakpoints {
		if aqi <= bp.aqiHigh {
			return bp.concLow + (aqi-bp.aqiLow)*(bp.concHigh-bp.concLow)/(bp.aqiHigh-bp.aqiLow)
		}
	}

	return pm25Breakpoints[len(pm25Breakpoints)-1].concHigh
}

// PM25ToAQI converts a PM2.5 concentration in µg/m³ to a US AQI value,
// rounded to the nearest integer. It is the inverse of AQIToPM25 within
// each breakpoint segment. Negative concentrations clamp to 0 and values
// above the last breakpoint clamp to 500.
func PM25ToAQI(conc float64) int {
	if conc < 0 {
		conc = 0
	}

	for _, bp := range pm25Breakpoints {
		if conc <= bp.concHigh {
			aqi := bp.aqiLow + (conc-bp.concLow)*(bp.aqiHigh-bp.aqiLow)/(bp.concHigh-bp.concLow)
			if aqi < 0 {
				aqi = 0
			}
			return int(math.Round(aqi))
		}
	}

	return 500
}
