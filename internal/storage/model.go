package storage

import (
	"database/sql"
	"time"
)

// Session is one archived retrieval
type Session struct {
	ID         int64     `json:"ID"`
	StartTime  time.Time `json:"startTime"`        // When the retrieval ran
	Port       string    `json:"port"`             // Serial port the log came from
	RemotePath string    `json:"remotePath"`       // Path of the log on the device
	Policy     string    `json:"policy"`           // Extraction policy name
	Header     *string   `json:"header,omitempty"` // CSV header row, if the log had one
	Config     *string   `json:"config,omitempty"` // Retriever configuration in JSON format
	Readings   int       `json:"readings"`         // Number of archived rows
}

type readingData struct {
	SessionID   int64
	Seq         int
	TimestampMS sql.NullFloat64
	RSSI315     sql.NullFloat64
	RSSI433     sql.NullFloat64
	RSSI868     sql.NullFloat64
	Temperature sql.NullFloat64
	Voltage     sql.NullFloat64
	PhiCurrent  sql.NullFloat64
	MatchPct    sql.NullFloat64
}
