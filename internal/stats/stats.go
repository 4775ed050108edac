package stats

import (
	"math"
	"time"

	"github.com/roman-kulish/sensorlog/internal/sensorlog"
)

const (
	// MinimumSampleCount is the advisory lower bound for a trustworthy analysis:
	// 5 minutes at 1 sample per second
	MinimumSampleCount = 300

	// Thresholds never drop below these floors, however tight the observed variance is
	HomeThresholdFloor     = 95.0
	StableThresholdFloor   = 85.0
	UnstableThresholdFloor = 70.0

	// samplePeriod is the logging period used to estimate duration without timestamps
	samplePeriod = time.Second
)

// Band is a signal strength column tracked by the analysis
type Band struct {
	Name   string           // Human readable band, e.g. "315 MHz"
	Key    string           // Suffix used for firmware constants, e.g. "315"
	Column sensorlog.Column // CSV column
}

// Bands lists the RSSI columns in report order
var Bands = []Band{
	{Name: "315 MHz", Key: "315", Column: sensorlog.ColumnRSSI315},
	{Name: "433 MHz", Key: "433", Column: sensorlog.ColumnRSSI433},
	{Name: "868 MHz", Key: "868", Column: sensorlog.ColumnRSSI868},
}

// TrackedColumns are the columns aggregated by Summarize
var TrackedColumns = []sensorlog.Column{
	sensorlog.ColumnRSSI315,
	sensorlog.ColumnRSSI433,
	sensorlog.ColumnRSSI868,
	sensorlog.ColumnTemperature,
	sensorlog.ColumnVoltage,
	sensorlog.ColumnPhi,
	sensorlog.ColumnMatch,
}

// Stats are the descriptive statistics of one column
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64 // Sample standard deviation, 0 for fewer than two values
	Min    float64
	Max    float64
}

// Compute returns the statistics of values, false when there are none
func Compute(values []float64) (Stats, bool) {
	if len(values) == 0 {
		return Stats{}, false
	}

	s := Stats{
		Count: len(values),
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
	}

	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(s.Count)

	if s.Count > 1 {
		var sq float64
		for _, v := range values {
			d := v - s.Mean
			sq += d * d
		}
		s.StdDev = math.Sqrt(sq / float64(s.Count-1))
	}

	return s, true
}

// BandRecommendation holds suggested firmware constants for one band
type BandRecommendation struct {
	Band
	Baseline float64 // Mean RSSI
	Variance float64 // 2-sigma spread
}

// Thresholds are the suggested PHI match thresholds in percent
type Thresholds struct {
	Home     float64 // 1-sigma
	Stable   float64 // 2-sigma
	Unstable float64 // 3-sigma
}

// PhiRecommendation holds suggested firmware constants for the PHI metric
type PhiRecommendation struct {
	Baseline   float64
	Tolerance  float64 // 2-sigma
	Variation  float64 // Standard deviation in percent of the mean, NaN when the mean is 0
	Thresholds Thresholds
}

// Summary is the result of analyzing a sensor log
type Summary struct {
	Columns        map[sensorlog.Column]Stats
	TotalSamples   int
	Duration       time.Duration
	Bands          []BandRecommendation
	Phi            *PhiRecommendation
	LowSampleCount bool
}

// Summarize aggregates every tracked column of the log independently and derives
// the recommended constants
func Summarize(log *sensorlog.Log) *Summary {
	s := Summary{
		Columns: make(map[sensorlog.Column]Stats, len(TrackedColumns)),
	}

	for _, column := range TrackedColumns {
		st, ok := Compute(log.Values(column))
		if !ok {
			continue
		}
		s.Columns[column] = st
		s.TotalSamples = max(s.TotalSamples, st.Count)
	}

	s.Duration = estimateDuration(log.Values(sensorlog.ColumnTimestamp), s.TotalSamples)
	s.LowSampleCount = s.TotalSamples < MinimumSampleCount

	for _, band := range Bands {
		if st, ok := s.Columns[band.Column]; ok {
			s.Bands = append(s.Bands, RecommendBand(band, st))
		}
	}
	if st, ok := s.Columns[sensorlog.ColumnPhi]; ok {
		phi := RecommendPhi(st)
		s.Phi = &phi
	}

	return &s
}

// Stats returns the statistics of a column, false when the column had no values
func (s *Summary) Stats(c sensorlog.Column) (Stats, bool) {
	st, ok := s.Columns[c]
	return st, ok
}

// RecommendBand suggests the baseline and the 2-sigma variance of a band
func RecommendBand(band Band, st Stats) BandRecommendation {
	return BandRecommendation{
		Band:     band,
		Baseline: st.Mean,
		Variance: st.StdDev * 2,
	}
}

// RecommendPhi suggests the PHI baseline, tolerance and thresholds
func RecommendPhi(st Stats) PhiRecommendation {
	r := PhiRecommendation{
		Baseline:   st.Mean,
		Tolerance:  st.StdDev * 2,
		Variation:  math.NaN(),
		Thresholds: ComputeThresholds(st.Mean, st.StdDev),
	}
	if st.Mean != 0 {
		r.Variation = st.StdDev / st.Mean * 100
	}
	return r
}

// ComputeThresholds derives the 1, 2 and 3 sigma thresholds as 100% minus k standard
// deviations expressed in percent of the mean. Each tier is floored on its own. With a
// zero mean the variance term is undefined and every tier is its floor.
func ComputeThresholds(mean, stdDev float64) Thresholds {
	if mean == 0 {
		return Thresholds{
			Home:     HomeThresholdFloor,
			Stable:   StableThresholdFloor,
			Unstable: UnstableThresholdFloor,
		}
	}

	sigmaPct := stdDev / mean * 100
	return Thresholds{
		Home:     math.Max(100-sigmaPct, HomeThresholdFloor),
		Stable:   math.Max(100-2*sigmaPct, StableThresholdFloor),
		Unstable: math.Max(100-3*sigmaPct, UnstableThresholdFloor),
	}
}

func estimateDuration(timestamps []float64, samples int) time.Duration {
	if len(timestamps) >= 2 {
		ts, _ := Compute(timestamps)
		return time.Duration((ts.Max - ts.Min) * float64(time.Millisecond))
	}
	return time.Duration(samples) * samplePeriod
}
