// Package checkpoint persists replay buffer snapshots in SQLite.
package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cartridge/replay/internal/replay"
)

// ErrNotFound indicates the requested checkpoint does not exist.
var ErrNotFound = errors.New("checkpoint not found")

const schema = `
	CREATE TABLE IF NOT EXISTS checkpoints (
		id           TEXT PRIMARY KEY,
		created_at   INTEGER NOT NULL,
		prioritized  INTEGER NOT NULL,
		capacity     INTEGER NOT NULL,
		records      INTEGER NOT NULL,
		alpha        REAL NOT NULL,
		beta         REAL NOT NULL,
		max_priority REAL NOT NULL,
		checksum     TEXT NOT NULL,
		payload      BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS checkpoints_created_at ON checkpoints (created_at);`

// Info describes a stored checkpoint without its payload.
type Info struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Prioritized bool      `json:"prioritized"`
	Capacity    int       `json:"capacity"`
	Records     int       `json:"records"`
	Alpha       float64   `json:"alpha"`
	Beta        float64   `json:"beta"`
	MaxPriority float64   `json:"max_priority"`
	Checksum    string    `json:"checksum"`
}

// Store keeps checkpoints in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint db: %w", err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create checkpoint schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save encodes and stores a snapshot under a fresh id.
func (s *Store) Save(ctx context.Context, snap *replay.Snapshot) (Info, error) {
	payload, err := Encode(snap)
	if err != nil {
		return Info{}, err
	}

	info := Info{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Prioritized: snap.Prioritized,
		Capacity:    snap.Capacity,
		Records:     snap.Len(),
		Alpha:       snap.Alpha,
		Beta:        snap.Beta,
		MaxPriority: snap.MaxPriority,
		Checksum:    Checksum(payload),
	}

	query := `
		INSERT INTO checkpoints (id, created_at, prioritized, capacity, records,
								 alpha, beta, max_priority, checksum, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		info.ID, info.CreatedAt.UnixNano(), info.Prioritized, info.Capacity, info.Records,
		info.Alpha, info.Beta, info.MaxPriority, info.Checksum, payload)
	if err != nil {
		return Info{}, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return info, nil
}

// Load returns the snapshot stored under id after verifying its checksum.
func (s *Store) Load(ctx context.Context, id string) (*replay.Snapshot, Info, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, prioritized, capacity, records, alpha, beta,
			   max_priority, checksum, payload
		FROM checkpoints WHERE id = ?`, id)
	return s.load(row)
}

// Latest returns the most recently stored snapshot.
func (s *Store) Latest(ctx context.Context) (*replay.Snapshot, Info, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, prioritized, capacity, records, alpha, beta,
			   max_priority, checksum, payload
		FROM checkpoints ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	return s.load(row)
}

func (s *Store) load(row *sql.Row) (*replay.Snapshot, Info, error) {
	var (
		info      Info
		createdAt int64
		payload   []byte
	)
	err := row.Scan(&info.ID, &createdAt, &info.Prioritized, &info.Capacity, &info.Records,
		&info.Alpha, &info.Beta, &info.MaxPriority, &info.Checksum, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Info{}, ErrNotFound
	}
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	info.CreatedAt = time.Unix(0, createdAt).UTC()

	if sum := Checksum(payload); sum != info.Checksum {
		return nil, Info{}, fmt.Errorf("%w: checkpoint %s stored %s, computed %s", ErrChecksum, info.ID, info.Checksum, sum)
	}
	snap, err := Decode(payload)
	if err != nil {
		return nil, Info{}, err
	}
	return snap, info, nil
}

// List returns checkpoint metadata, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Info, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, prioritized, capacity, records, alpha, beta,
			   max_priority, checksum
		FROM checkpoints ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		var (
			info      Info
			createdAt int64
		)
		if err := rows.Scan(&info.ID, &createdAt, &info.Prioritized, &info.Capacity, &info.Records,
			&info.Alpha, &info.Beta, &info.MaxPriority, &info.Checksum); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		info.CreatedAt = time.Unix(0, createdAt).UTC()
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Prune deletes all but the keep most recent checkpoints and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM checkpoints WHERE id NOT IN (
			SELECT id FROM checkpoints ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune checkpoints: %w", err)
	}
	return result.RowsAffected()
}
