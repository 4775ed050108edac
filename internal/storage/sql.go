package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time  TIMESTAMP NOT NULL,
    port        TEXT      NOT NULL,
    remote_path TEXT      NOT NULL,
    policy      TEXT      NOT NULL,
    header      TEXT,
    config      TEXT
);

CREATE TABLE IF NOT EXISTS readings (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id   INTEGER NOT NULL REFERENCES sessions (id),
    seq          INTEGER NOT NULL,
    timestamp_ms REAL,
    rssi_315     REAL,
    rssi_433     REAL,
    rssi_868     REAL,
    temperature  REAL,
    voltage      REAL,
    phi_current  REAL,
    match_pct    REAL
);`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_readings_session_seq ON readings (session_id, seq);`

	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      port,
                      remote_path,
                      policy,
                      header,
                      config)
VALUES (?, ?, ?, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    s.id,
    s.start_time,
    s.port,
    s.remote_path,
    s.policy,
    s.header,
    s.config,
    (SELECT COUNT(*) FROM readings r WHERE r.session_id = s.id)
FROM sessions s
WHERE
    s.id = ?`

	selectSessionsSQL = `
SELECT
    s.id,
    s.start_time,
    s.port,
    s.remote_path,
    s.policy,
    s.header,
    s.config,
    (SELECT COUNT(*) FROM readings r WHERE r.session_id = s.id)
FROM sessions s
ORDER BY s.start_time, s.id`

	insertReadingsSQL = `
INSERT INTO readings (
                      session_id,
                      seq,
                      timestamp_ms,
                      rssi_315,
                      rssi_433,
                      rssi_868,
                      temperature,
                      voltage,
                      phi_current,
                      match_pct)
VALUES `

	readingValuesPlaceholder = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

	selectNextSeqSQL = `
SELECT COALESCE(MAX(seq) + 1, 0) FROM readings WHERE session_id = ?`

	selectReadingsSQL = `
SELECT
    timestamp_ms,
    rssi_315,
    rssi_433,
    rssi_868,
    temperature,
    voltage,
    phi_current,
    match_pct
FROM readings
WHERE
    session_id = ?
ORDER BY seq`
)
