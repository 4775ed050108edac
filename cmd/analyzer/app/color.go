package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const defaultColorMapSize = 256

var noDataColor = color.Black

// PowerBounds is the RSSI range mapped onto the color scale
type PowerBounds struct {
	Min float64
	Max float64
}

// ColorMapper maps RSSI readings to pre-computed theme colors
type ColorMapper struct {
	colorMap      []color.Color
	bounds        PowerBounds
	powerPerIndex float64
}

func NewColorMapper(theme ColorTheme, bounds PowerBounds) *ColorMapper {
	fn := colorTheme(theme)

	cm := ColorMapper{
		colorMap: make([]color.Color, defaultColorMapSize),
		bounds:   bounds,
	}

	span := bounds.Max - bounds.Min
	if span > 0 {
		cm.powerPerIndex = span / float64(defaultColorMapSize-1)
	}

	for i := range cm.colorMap {
		cm.colorMap[i] = fn(float64(i) / float64(defaultColorMapSize-1))
	}

	return &cm
}

// Color returns the color of a reading; nil readings are drawn as no data
func (cm *ColorMapper) Color(power *float64) color.Color {
	if power == nil {
		return noDataColor
	}
	if cm.powerPerIndex == 0 {
		return cm.colorMap[len(cm.colorMap)/2]
	}

	pwr := math.Max(cm.bounds.Min, math.Min(*power, cm.bounds.Max))
	index := int((pwr - cm.bounds.Min) / cm.powerPerIndex)

	return cm.colorMap[min(max(index, 0), len(cm.colorMap)-1)]
}

// colorTheme returns a function mapping normalized power [0-1] to a color
func colorTheme(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case GrayscaleTheme: // Black -> White
		return func(power float64) color.Color {
			v := math.Pow(power, 0.7)
			return colorful.Color{R: v, G: v, B: v}.Clamped()
		}

	case ThermalTheme: // Black -> Red -> Yellow -> White
		return func(power float64) color.Color {
			switch {
			case power < 0.33:
				return colorful.Color{R: power * 3}.Clamped()
			case power < 0.66:
				return colorful.Color{R: 1, G: (power - 0.33) * 3}.Clamped()
			default:
				return colorful.Color{R: 1, G: 1, B: (power - 0.66) * 3}.Clamped()
			}
		}

	default: // Blue -> Red
		return func(power float64) color.Color {
			return colorful.Hsv(240-(power*240), 0.9+(power*0.1), 0.3+math.Pow(power, 0.7)*0.7)
		}
	}
}
