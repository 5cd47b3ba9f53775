package envdata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHectoPascalToKPa(t *testing.T) {
	assert.InDelta(t, 101.3, float64(HectoPascal(1013).KPa()), 1e-9)
	assert.Equal(t, KiloPascal(0), HectoPascal(math.NaN()).KPa())
	assert.Equal(t, KiloPascal(0), HectoPascal(math.Inf(1)).KPa())
}

func TestPascalToKPa(t *testing.T) {
	assert.InDelta(t, 101.325, float64(PascalToKPa(101325)), 1e-9)
	assert.Equal(t, KiloPascal(0), PascalToKPa(math.Inf(-1)))
}

func TestCoerceSentinel(t *testing.T) {
	assert.Equal(t, 0.0, CoerceSentinel(-999, FillValue))
	assert.Equal(t, 12.5, CoerceSentinel(12.5, FillValue))
	assert.Equal(t, 0.0, CoerceSentinel(math.NaN(), FillValue))
	assert.Equal(t, -5.0, CoerceSentinel(-5, FillValue))
}

func TestRainChanceFromAmount(t *testing.T) {
	tests := []struct {
		name string
		mm   float64
		coef float64
		want int
	}{
		{"zero", 0, 10, 0},
		{"negative", -3, 10, 0},
		{"fraction rounds up", 0.21, 10, 3},
		{"scaled", 4.5, 10, 45},
		{"capped", 25, 10, 100},
		{"invalid coefficient uses default", 2, 0, 20},
		{"custom coefficient", 2, 25, 50},
		{"nan", math.NaN(), 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RainChanceFromAmount(tt.mm, tt.coef))
		})
	}
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0, ClampPercent(-4))
	assert.Equal(t, 100, ClampPercent(140))
	assert.Equal(t, 43, ClampPercent(42.6))
	assert.Equal(t, 0, ClampPercent(math.NaN()))
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 23.0, RoundDisplay(22.5))
	assert.Equal(t, 0.0, RoundDisplay(math.Inf(1)))
	assert.Equal(t, 12.35, RoundConcentration(12.345678))
	assert.Equal(t, 0.0, Float(nil))
	assert.Equal(t, 3.5, Float(ptr(3.5)))
	assert.Nil(t, optionalConcentration(nil))
	assert.Equal(t, 1.23, *optionalConcentration(ptr(1.234)))
}
