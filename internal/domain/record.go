package domain

// Dataset column names, exactly as they appear in the CSV header.
const (
	ColumnCrop             = "CROP TYPE"
	ColumnSoil             = "SOIL TYPE"
	ColumnRegion           = "REGION"
	ColumnWeather          = "WEATHER CONDITION"
	ColumnTemperature      = "TEMPERATURE"
	ColumnWaterRequirement = "WATER REQUIREMENT"
)

// RequiredColumns lists every column the dataset loader insists on.
var RequiredColumns = []string{
	ColumnCrop,
	ColumnSoil,
	ColumnRegion,
	ColumnWeather,
	ColumnTemperature,
	ColumnWaterRequirement,
}

// Categorical field keys used by the encoder bundle and prediction requests.
const (
	FieldCrop    = "crop"
	FieldSoil    = "soil"
	FieldRegion  = "region"
	FieldWeather = "weather"
	FieldScaler  = "scaler"
)

// CategoricalFields is the encoder order; it matches the first four feature columns.
var CategoricalFields = []string{FieldCrop, FieldSoil, FieldRegion, FieldWeather}

// FeatureNames is the persisted column order of the feature matrix.
var FeatureNames = []string{"CROP", "SOIL", "REGION", "WEATHER", "TEMPERATURE"}

// Record is one raw observation from the dataset.
type Record struct {
	Crop             string  `json:"crop"`
	Soil             string  `json:"soil"`
	Region           string  `json:"region"`
	Weather          string  `json:"weather"`
	Temperature      string  `json:"temperature"`
	WaterRequirement float64 `json:"water_requirement"`
}

// Category returns the record's value for a categorical field key.
func (r Record) Category(field string) (string, bool) {
	switch field {
	case FieldCrop:
		return r.Crop, true
	case FieldSoil:
		return r.Soil, true
	case FieldRegion:
		return r.Region, true
	case FieldWeather:
		return r.Weather, true
	default:
		return "", false
	}
}
