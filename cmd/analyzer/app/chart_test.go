package app

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/sensorlog/internal/sensorlog"
	"github.com/roman-kulish/sensorlog/internal/stats"
)

func f(v float64) *float64 {
	return &v
}

func TestDownsample(t *testing.T) {
	values := []*float64{f(1), f(3), nil, nil, f(5), nil}

	require.Equal(t, values, downsample(values, 10))

	out := downsample(values, 3)
	require.Len(t, out, 3)
	require.Equal(t, 2.0, *out[0])
	require.Nil(t, out[1])
	require.Equal(t, 5.0, *out[2])
}

func TestColorMapper(t *testing.T) {
	cm := NewColorMapper(GrayscaleTheme, PowerBounds{Min: -100, Max: -50})

	require.Equal(t, noDataColor, cm.Color(nil))

	lo := color.GrayModel.Convert(cm.Color(f(-120))).(color.Gray)
	hi := color.GrayModel.Convert(cm.Color(f(-10))).(color.Gray)
	mid := color.GrayModel.Convert(cm.Color(f(-75))).(color.Gray)
	require.Equal(t, uint8(0), lo.Y)
	require.Equal(t, uint8(255), hi.Y)
	require.Greater(t, mid.Y, lo.Y)
	require.Less(t, mid.Y, hi.Y)

	flat := NewColorMapper(ClassicTheme, PowerBounds{Min: -80, Max: -80})
	require.NotNil(t, flat.Color(f(-80)))
}

func TestNewChartData(t *testing.T) {
	log, err := sensorlog.Read(strings.NewReader("timestamp_ms,rssi_315,rssi_868,phi_current\n" +
		"1000,-80,-95,0.6\n" +
		"2000,,-96,0.6\n" +
		"3000,-82,-97,0.6\n"))
	require.NoError(t, err)

	data, ok := NewChartData(log, stats.Summarize(log))
	require.True(t, ok)
	require.Len(t, data.Bands, 2)
	require.Equal(t, "315 MHz", data.Bands[0].Label)
	require.Equal(t, "868 MHz", data.Bands[1].Label)
	require.Equal(t, 3, data.Width)
	require.Nil(t, data.Bands[0].Values[1])
	require.Equal(t, PowerBounds{Min: -97, Max: -80}, data.Bounds)

	log, err = sensorlog.Read(strings.NewReader("phi_current\n0.6\n"))
	require.NoError(t, err)
	_, ok = NewChartData(log, stats.Summarize(log))
	require.False(t, ok)
}

func TestChartRenderer_Render(t *testing.T) {
	log, err := sensorlog.Read(strings.NewReader("rssi_315,rssi_433,rssi_868\n-80,-90,-95\n-81,-91,-96\n-82,-92,-97\n"))
	require.NoError(t, err)

	data, ok := NewChartData(log, stats.Summarize(log))
	require.True(t, ok)

	r, err := NewChartRenderer(ClassicTheme)
	require.NoError(t, err)

	img, err := r.Render(data)
	require.NoError(t, err)
	require.Equal(t, data.Width+defaultLeftBorder+defaultRightBorder, img.Bounds().Dx())
	require.Equal(t, 3*bandHeight+2*bandGap+defaultTopBorder+defaultBottomBorder, img.Bounds().Dy())

	path := filepath.Join(t.TempDir(), "rssi.png")
	require.NoError(t, saveChart(path, img))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	decoded, err := png.Decode(file)
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), decoded.Bounds())
}
