package storage

import (
	"database/sql"

	"github.com/roman-kulish/sensorlog/internal/sensorlog"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && cErr != sql.ErrTxDone && *err == nil {
		*err = cErr
	}
}

func toReadingData(sessionID int64, seq int, r *sensorlog.Reading) *readingData {
	return &readingData{
		SessionID:   sessionID,
		Seq:         seq,
		TimestampMS: toSQLNullFloat(r.TimestampMS),
		RSSI315:     toSQLNullFloat(r.RSSI315),
		RSSI433:     toSQLNullFloat(r.RSSI433),
		RSSI868:     toSQLNullFloat(r.RSSI868),
		Temperature: toSQLNullFloat(r.Temperature),
		Voltage:     toSQLNullFloat(r.Voltage),
		PhiCurrent:  toSQLNullFloat(r.PhiCurrent),
		MatchPct:    toSQLNullFloat(r.MatchPct),
	}
}

func (d *readingData) toReading() sensorlog.Reading {
	return sensorlog.Reading{
		TimestampMS: fromSQLNullFloat(d.TimestampMS),
		RSSI315:     fromSQLNullFloat(d.RSSI315),
		RSSI433:     fromSQLNullFloat(d.RSSI433),
		RSSI868:     fromSQLNullFloat(d.RSSI868),
		Temperature: fromSQLNullFloat(d.Temperature),
		Voltage:     fromSQLNullFloat(d.Voltage),
		PhiCurrent:  fromSQLNullFloat(d.PhiCurrent),
		MatchPct:    fromSQLNullFloat(d.MatchPct),
	}
}

func toSQLNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromSQLNullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func toSQLNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func fromSQLNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
