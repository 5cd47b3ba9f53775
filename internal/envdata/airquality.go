package envdata

// AQICategory is one of six ordered PM2.5 bands.
type AQICategory string

const (
	AQIGood                        AQICategory = "Good"
	AQIModerate                    AQICategory = "Moderate"
	AQIUnhealthyForSensitiveGroups AQICategory = "Unhealthy for Sensitive Groups"
	AQIUnhealthy                   AQICategory = "Unhealthy"
	AQIVeryUnhealthy               AQICategory = "Very Unhealthy"
	AQIHazardous                   AQICategory = "Hazardous"
)

// StatusNotAvailable is shown when no PM2.5 value exists for a bucket.
const StatusNotAvailable = "N/A"

var aqiBands = []struct {
	upper    float64
	category AQICategory
}{
	{12, AQIGood},
	{35.4, AQIModerate},
	{55.4, AQIUnhealthyForSensitiveGroups},
	{150.4, AQIUnhealthy},
	{250.4, AQIVeryUnhealthy},
}

// ClassifyPM25 maps a PM2.5 concentration (µg/m³) to its category.
// Band upper edges are inclusive.
func ClassifyPM25(pm25 float64) AQICategory {
	for _, b := range aqiBands {
		if pm25 <= b.upper {
			return b.category
		}
	}
	return AQIHazardous
}

// AirQualityStatus returns the category label for aq, or "N/A" when absent.
func AirQualityStatus(aq *AirQuality) string {
	if aq == nil {
		return StatusNotAvailable
	}
	return string(ClassifyPM25(aq.PM25))
}

func pm25Status(pm25 *float64) string {
	if pm25 == nil || !finite(*pm25) {
		return StatusNotAvailable
	}
	return string(ClassifyPM25(*pm25))
}
