package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/sensorlog/internal/sensorlog"
)

// insertBatchSize keeps a single INSERT under the SQLite host parameter limit
const insertBatchSize = 90

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string
	now    func() time.Time

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

var _ Store = (*SqliteStore)(nil)

// NewSqliteStore creates a new archive backed by the Sqlite database at dbPath. The
// database is created on the first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath, now: time.Now}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, port, remotePath, policy, header string, config any) (sessionID int64, err error) {
	var configData sql.NullString

	if config != nil {
		switch c := config.(type) {
		case string:
			configData = sql.NullString{String: c, Valid: true}

		case []byte:
			configData = sql.NullString{String: string(c), Valid: true}

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}
			configData = sql.NullString{String: string(p), Valid: true}
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, s.now().UTC(), port, remotePath, policy, toSQLNullString(header), configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var header, config sql.NullString
	if err := row.Scan(&sess.ID, &sess.StartTime, &sess.Port, &sess.RemotePath, &sess.Policy, &header, &config, &sess.Readings); err != nil {
		return nil, err
	}
	sess.Header = fromSQLNullString(header)
	sess.Config = fromSQLNullString(config)
	return &sess, nil
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	if session, err = scanSession(stmt.QueryRowContext(ctx, id)); err != nil {
		err = fmt.Errorf("scanning session %d: %w", id, err)
	}
	return
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess *Session
		if sess, err = scanSession(rows); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sessions = append(sessions, sess)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreReadings(ctx context.Context, sessionID int64, readings []sensorlog.Reading) (err error) {
	if len(readings) == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	var seq int
	if err = tx.QueryRowContext(ctx, selectNextSeqSQL, sessionID).Scan(&seq); err != nil {
		return fmt.Errorf("reading sequence: %w", err)
	}

	for batch := range slices.Chunk(readings, insertBatchSize) {
		values := make([]any, 0, len(batch)*10)

		var sb strings.Builder
		sb.WriteString(insertReadingsSQL)

		for i := range batch {
			data := toReadingData(sessionID, seq, &batch[i])
			seq++

			values = append(values,
				data.SessionID,
				data.Seq,
				data.TimestampMS,
				data.RSSI315,
				data.RSSI433,
				data.RSSI868,
				data.Temperature,
				data.Voltage,
				data.PhiCurrent,
				data.MatchPct,
			)

			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(readingValuesPlaceholder)
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting readings: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// ReadLog rebuilds the sensor log of a session. The header is restored from the
// archived header row.
func (s *SqliteStore) ReadLog(ctx context.Context, sessionID int64) (log *sensorlog.Log, err error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectReadingsSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer closeWithError(rows, &err)

	log = &sensorlog.Log{Readings: make([]sensorlog.Reading, 0, sess.Readings)}
	if sess.Header != nil {
		log.Header = strings.Split(*sess.Header, ",")
	}

	for rows.Next() {
		var data readingData
		if err = rows.Scan(
			&data.TimestampMS,
			&data.RSSI315,
			&data.RSSI433,
			&data.RSSI868,
			&data.Temperature,
			&data.Voltage,
			&data.PhiCurrent,
			&data.MatchPct,
		); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		log.Readings = append(log.Readings, data.toReading())
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}

	return log, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
