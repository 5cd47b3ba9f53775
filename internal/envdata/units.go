package envdata

import "math"

// FillValue is the NASA POWER "no data" sentinel used when a payload does not
// advertise its own fill value.
const FillValue = -999.0

// DefaultRainChanceCoefficient converts millimetres of precipitation into a
// rain-chance percentage when a provider has no probability field.
const DefaultRainChanceCoefficient = 10.0

// HectoPascal is a pressure in hPa (millibar), the native unit of most providers.
type HectoPascal float64

// KiloPascal is the canonical pressure unit of every reading.
type KiloPascal float64

// KPa converts hPa to kPa. Non-finite input yields 0.
func (p HectoPascal) KPa() KiloPascal {
	v := float64(p)
	if !finite(v) {
		return 0
	}
	return KiloPascal(v / 10)
}

// PascalToKPa converts Pa to kPa. Non-finite input yields 0.
func PascalToKPa(pa float64) KiloPascal {
	if !finite(pa) {
		return 0
	}
	return KiloPascal(pa / 1000)
}

// CoerceSentinel replaces the sentinel (and any non-finite value) with 0.
func CoerceSentinel(v, sentinel float64) float64 {
	if !finite(v) || v == sentinel {
		return 0
	}
	return v
}

// RainChanceFromAmount derives a 0-100 probability from an absolute
// precipitation amount: min(100, ceil(mm * coefficient)).
func RainChanceFromAmount(mm, coefficient float64) int {
	if !finite(mm) || mm <= 0 {
		return 0
	}
	if !finite(coefficient) || coefficient <= 0 {
		coefficient = DefaultRainChanceCoefficient
	}
	return ClampPercent(math.Ceil(mm * coefficient))
}

// ClampPercent rounds v and clamps it into [0, 100].
func ClampPercent(v float64) int {
	if !finite(v) || v <= 0 {
		return 0
	}
	if v >= 100 {
		return 100
	}
	return int(math.Round(v))
}

// RoundDisplay rounds temperature and humidity display fields to the nearest integer.
func RoundDisplay(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return math.Round(v)
}

// RoundConcentration rounds pollutant concentrations to two decimal places.
func RoundConcentration(v float64) float64 {
	return round2(v)
}

// Float dereferences an optional upstream value; nil and non-finite yield 0.
func Float(p *float64) float64 {
	if p == nil || !finite(*p) {
		return 0
	}
	return *p
}

// optionalConcentration rounds an optional pollutant, keeping nil as nil.
func optionalConcentration(p *float64) *float64 {
	if p == nil || !finite(*p) {
		return nil
	}
	v := round2(*p)
	return &v
}

func round2(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return math.Round(v*100) / 100
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
