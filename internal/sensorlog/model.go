package sensorlog

// Column is a CSV column name written by the on-device logger
type Column string

const (
	ColumnTimestamp   Column = "timestamp_ms"
	ColumnRSSI315     Column = "rssi_315"
	ColumnRSSI433     Column = "rssi_433"
	ColumnRSSI868     Column = "rssi_868"
	ColumnTemperature Column = "temperature"
	ColumnVoltage     Column = "voltage"
	ColumnPhi         Column = "phi_current"
	ColumnMatch       Column = "match_pct"
)

// DefaultColumns is the column order of sensor_log.csv. It is used when a log has no
// header row.
var DefaultColumns = []Column{
	ColumnTimestamp,
	ColumnRSSI315,
	ColumnRSSI433,
	ColumnRSSI868,
	ColumnTemperature,
	ColumnVoltage,
	ColumnPhi,
	ColumnMatch,
}

func (c Column) String() string {
	return string(c)
}

// Reading is one CSV row. A nil field means the column was absent or not numeric in
// that row.
type Reading struct {
	TimestampMS *float64 // Milliseconds since the logger started
	RSSI315     *float64 // RSSI at 315 MHz in dBm
	RSSI433     *float64 // RSSI at 433 MHz in dBm
	RSSI868     *float64 // RSSI at 868 MHz in dBm
	Temperature *float64 // Device temperature in °C
	Voltage     *float64 // Battery voltage in V
	PhiCurrent  *float64 // Derived PHI metric
	MatchPct    *float64 // Match against the PHI baseline in percent
}

func (r *Reading) field(c Column) **float64 {
	switch c {
	case ColumnTimestamp:
		return &r.TimestampMS
	case ColumnRSSI315:
		return &r.RSSI315
	case ColumnRSSI433:
		return &r.RSSI433
	case ColumnRSSI868:
		return &r.RSSI868
	case ColumnTemperature:
		return &r.Temperature
	case ColumnVoltage:
		return &r.Voltage
	case ColumnPhi:
		return &r.PhiCurrent
	case ColumnMatch:
		return &r.MatchPct
	}
	return nil
}

// Value returns the value of a column, nil when it is missing or the column is unknown
func (r *Reading) Value(c Column) *float64 {
	if f := r.field(c); f != nil {
		return *f
	}
	return nil
}

// Set stores a value for a known column and reports whether the column is tracked
func (r *Reading) Set(c Column, v float64) bool {
	f := r.field(c)
	if f == nil {
		return false
	}
	*f = &v
	return true
}

// Log is a parsed sensor log
type Log struct {
	Header   []string  // Column names, DefaultColumns when the file had no header
	Readings []Reading // Rows in file order
	Skipped  int       // Fields of tracked columns that were missing or not numeric
}

// Values returns the parsed values of a column in row order, skipping rows where the
// column is missing
func (l *Log) Values(c Column) []float64 {
	var values []float64
	for i := range l.Readings {
		if v := l.Readings[i].Value(c); v != nil {
			values = append(values, *v)
		}
	}
	return values
}
