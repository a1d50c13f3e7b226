package domain

// DefaultConditionScore is returned for weather or region labels outside the
// tables below.
const DefaultConditionScore = 0.5

// weatherScores rates how strongly a weather condition drives water demand.
var weatherScores = map[string]float64{
	"SUNNY":  1.0,
	"NORMAL": 0.7,
	"WINDY":  0.5,
	"RAINY":  0.2,
}

// regionScores rates how strongly a region's climate drives water demand.
var regionScores = map[string]float64{
	"DESERT":     1.0,
	"SEMI ARID":  0.75,
	"SEMI HUMID": 0.5,
	"HUMID":      0.25,
}

// WeatherScore returns the demand score for a weather condition and whether
// the label was recognized. Unknown labels score DefaultConditionScore.
func WeatherScore(weather string) (float64, bool) {
	return lookupScore(weatherScores, weather)
}

// RegionScore returns the demand score for a region and whether the label was
// recognized. Unknown labels score DefaultConditionScore.
func RegionScore(region string) (float64, bool) {
	return lookupScore(regionScores, region)
}

func lookupScore(table map[string]float64, key string) (float64, bool) {
	v, ok := table[key]
	if !ok {
		return DefaultConditionScore, false
	}
	return v, true
}

// Recommendation tiers for a predicted water requirement.
const (
	RecommendationLow      = "low"
	RecommendationModerate = "moderate"
	RecommendationHigh     = "high"
)

// Recommend buckets a predicted water requirement: below 3 is low, below 7 is
// moderate, anything else is high.
func Recommend(waterRequirement float64) string {
	switch {
	case waterRequirement < 3:
		return RecommendationLow
	case waterRequirement < 7:
		return RecommendationModerate
	default:
		return RecommendationHigh
	}
}
