package app

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/sensorlog/internal/sensorlog"
	"github.com/roman-kulish/sensorlog/internal/stats"
)

const (
	dpi        = 72.0
	fontSize   = 14.0
	spacing    = 1.3
	bandHeight = 48
	bandGap    = 6

	// maxChartWidth caps the pixel columns; longer logs are averaged into buckets
	maxChartWidth = 3600

	defaultTopBorder    = 20
	defaultLeftBorder   = 110
	defaultBottomBorder = 80
	defaultRightBorder  = 20
)

// ChartBand is one horizontal strip of the chart
type ChartBand struct {
	Label  string
	Values []*float64 // one value per pixel column, nil where no reading exists
}

// ChartData is the RSSI history prepared for rendering
type ChartData struct {
	Bands    []ChartBand
	Width    int
	Samples  int
	Duration time.Duration
	Bounds   PowerBounds
}

// NewChartData collects the RSSI columns of the log. Bands without any value are left
// out; false is returned when no band has values.
func NewChartData(log *sensorlog.Log, summary *stats.Summary) (*ChartData, bool) {
	data := ChartData{
		Samples:  len(log.Readings),
		Duration: summary.Duration,
	}

	first := true
	for _, band := range stats.Bands {
		st, ok := summary.Stats(band.Column)
		if !ok {
			continue
		}

		if first {
			data.Bounds = PowerBounds{Min: st.Min, Max: st.Max}
			first = false
		} else {
			data.Bounds.Min = min(data.Bounds.Min, st.Min)
			data.Bounds.Max = max(data.Bounds.Max, st.Max)
		}

		values := make([]*float64, len(log.Readings))
		for i := range log.Readings {
			values[i] = log.Readings[i].Value(band.Column)
		}

		data.Bands = append(data.Bands, ChartBand{
			Label:  bandLabel(band),
			Values: downsample(values, maxChartWidth),
		})
	}

	if len(data.Bands) == 0 {
		return nil, false
	}

	data.Width = len(data.Bands[0].Values)
	return &data, true
}

func bandLabel(band stats.Band) string {
	mhz, err := strconv.ParseFloat(band.Key, 64)
	if err != nil {
		return band.Name
	}
	fract, suffix := humanize.ComputeSI(mhz * 1e6)
	return fmt.Sprintf("%0.0f %sHz", fract, suffix)
}

// downsample averages values into at most width buckets, ignoring missing values
func downsample(values []*float64, width int) []*float64 {
	if len(values) <= width {
		return values
	}

	out := make([]*float64, width)
	for px := range out {
		lo := px * len(values) / width
		hi := (px + 1) * len(values) / width

		var sum float64
		var n int
		for _, v := range values[lo:hi] {
			if v != nil {
				sum += *v
				n++
			}
		}
		if n > 0 {
			avg := sum / float64(n)
			out[px] = &avg
		}
	}
	return out
}

// ChartRenderer draws RSSI strip charts: one band per frequency, one pixel column per
// sample, colored by signal strength
type ChartRenderer struct {
	colors  *ColorMapper
	context *freetype.Context
	face    font.Face
	theme   ColorTheme
}

func NewChartRenderer(theme ColorTheme) (*ChartRenderer, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(fontSize)
	context.SetSrc(image.Black)
	context.SetHinting(font.HintingFull)

	face := truetype.NewFace(parsedFont, &truetype.Options{Size: fontSize, DPI: dpi, Hinting: font.HintingFull})

	return &ChartRenderer{context: context, face: face, theme: theme}, nil
}

func (r *ChartRenderer) Render(data *ChartData) (*image.RGBA, error) {
	height := len(data.Bands)*(bandHeight+bandGap) - bandGap
	fullWidth := data.Width + defaultLeftBorder + defaultRightBorder
	fullHeight := height + defaultTopBorder + defaultBottomBorder

	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	r.colors = NewColorMapper(r.theme, data.Bounds)

	for bi, band := range data.Bands {
		top := defaultTopBorder + bi*(bandHeight+bandGap)
		for x, v := range band.Values {
			c := r.colors.Color(v)
			for y := top; y < top+bandHeight; y++ {
				img.Set(defaultLeftBorder+x, y, c)
			}
		}
	}

	if err := r.annotate(img, data); err != nil {
		return nil, fmt.Errorf("annotating chart: %w", err)
	}

	return img, nil
}

func (r *ChartRenderer) annotate(img *image.RGBA, data *ChartData) error {
	r.context.SetClip(img.Bounds())
	r.context.SetDst(img)

	lineHeight := r.context.PointToFixed(fontSize * spacing)

	for bi, band := range data.Bands {
		top := defaultTopBorder + bi*(bandHeight+bandGap)
		width := font.MeasureString(r.face, band.Label).Ceil()

		pt := freetype.Pt(defaultLeftBorder-width-8, top+bandHeight/2+int(fontSize/2))
		if _, err := r.context.DrawString(band.Label, pt); err != nil {
			return fmt.Errorf("drawing band label: %w", err)
		}
	}

	perPixel := 1
	if data.Samples > data.Width {
		perPixel = (data.Samples + data.Width - 1) / data.Width
	}

	lines := []string{
		fmt.Sprintf("Samples: %s over %s", humanize.Comma(int64(data.Samples)), data.Duration.Round(time.Second)),
		fmt.Sprintf("RSSI: %.1f to %.1f dBm, 1 pixel = %d sample(s)", data.Bounds.Min, data.Bounds.Max, perPixel),
	}

	pt := freetype.Pt(defaultLeftBorder, img.Bounds().Dy()-defaultBottomBorder+int(math.Round(fontSize*spacing))+8)
	for _, s := range lines {
		if _, err := r.context.DrawString(s, pt); err != nil {
			return fmt.Errorf("drawing info: %w", err)
		}
		pt.Y += lineHeight
	}

	return nil
}

// saveChart writes the image as PNG
func saveChart(path string, img image.Image) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cErr)
		}
	}()

	if err = png.Encode(out, img); err != nil {
		return fmt.Errorf("encoding chart: %w", err)
	}
	return nil
}
