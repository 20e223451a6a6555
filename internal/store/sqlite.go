package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/pinyin-predict/internal/model"
)

// SQLiteStore implements Store using SQLite.
//
// Journal ids are monotonic ULIDs so id order is record order.
// Writes are serialized by writeMu. Reads and writes share maint; Compact
// takes it exclusively.
type SQLiteStore struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy
	idMu    sync.Mutex

	writeMu sync.Mutex
	maint   sync.RWMutex
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// NewEvent builds a journal entry for a phrase used count times.
func (s *SQLiteStore) NewEvent(phrase model.Phrase, count int64) *model.TrainEvent {
	return &model.TrainEvent{
		ID:        s.newID(),
		Phrase:    append(model.Phrase(nil), phrase...),
		Count:     count,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS readings (
		reading_id INTEGER PRIMARY KEY,
		pinyin     TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS word_weight (
		word_id     INTEGER PRIMARY KEY CHECK (word_id >= 0),
		reading_id  INTEGER NOT NULL REFERENCES readings(reading_id),
		char        TEXT NOT NULL,
		weight_base INTEGER NOT NULL DEFAULT 0,
		weight_user INTEGER NOT NULL DEFAULT 0 CHECK (weight_user >= 0)
	);
	CREATE INDEX IF NOT EXISTS idx_word_weight_reading ON word_weight(reading_id);

	CREATE TABLE IF NOT EXISTS word_transition (
		word_id        INTEGER NOT NULL,
		predecessor_id INTEGER NOT NULL,
		value_base     INTEGER NOT NULL DEFAULT 0,
		value_user     INTEGER NOT NULL DEFAULT 0 CHECK (value_user >= 0),
		PRIMARY KEY (word_id, predecessor_id)
	) WITHOUT ROWID;
	CREATE INDEX IF NOT EXISTS idx_transition_prev ON word_transition(predecessor_id);

	CREATE TABLE IF NOT EXISTS train_events (
		id         TEXT PRIMARY KEY,
		phrase     TEXT NOT NULL,
		count      INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		undone_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_train_events_created ON train_events(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// idList encodes ids for use with json_each so a whole set binds to a
// single parameter.
func idList(ids []int64) string {
	if ids == nil {
		ids = []int64{}
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func stringList(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

var _ Store = (*SQLiteStore)(nil)
