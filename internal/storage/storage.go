package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/sensorlog/internal/sensorlog"
)

// Store archives retrieved sensor logs so that they can be analyzed again later
// without the device.
type Store interface {
	// CreateSession records a retrieval and returns its identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - port: Serial port the log was read from
	//   - remotePath: Path of the log on the device storage
	//   - policy: Name of the extraction policy
	//   - header: CSV header row, empty when the log had none
	//   - config: Optional retriever configuration. Can be string, []byte, or JSON-serializable object
	CreateSession(ctx context.Context, port, remotePath, policy, header string, config any) (sessionID int64, err error)

	// Session returns a single session, sql.ErrNoRows wrapped when it does not exist.
	Session(ctx context.Context, id int64) (session *Session, err error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) (sessions []*Session, err error)

	// StoreReadings appends readings to a session in a single transaction.
	StoreReadings(ctx context.Context, sessionID int64, readings []sensorlog.Reading) error

	// ReadLog loads an archived session back as a sensor log.
	ReadLog(ctx context.Context, sessionID int64) (*sensorlog.Log, error)

	Close() error
}
