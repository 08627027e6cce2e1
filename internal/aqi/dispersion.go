package aqi

// maxRawDispersionScore is the largest additive score the dispersion
// heuristic can produce; the raw score is normalized against it.
const maxRawDispersionScore = 75.0

// DispersionImpact scores how strongly current weather traps pollutants,
// on a 0-100 scale where 0 is excellent dispersion and 100 is worst.
//
// The score is additive: calm wind keeps pollutants near the surface,
// high humidity and heavy cloud cover trap them, and low temperature
// favors inversion layers.
func DispersionImpact(windSpeed, humidity, temperature, cloudCover float64) float64 {
	var score float64

	switch {
	case windSpeed < 2:
		score += 30 // poor dispersion
	case windSpeed < 5:
		score += 15 // moderate dispersion
	default:
		score += 5 // good dispersion
	}

	switch {
	case humidity > 80:
		score += 20
	case humidity > 60:
		score += 10
	}

	if temperature < 5 {
		score += 15 // inversion conditions
	}

	if cloudCover > 80 {
		score += 10
	}

	impact := score / maxRawDispersionScore * 100
	if impact > 100 {
		return 100
	}
	if impact < 0 {
		return 0
	}
	return impact
}
