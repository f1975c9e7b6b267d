//go:build sqlite

package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/cardiosim/internal/config"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec *Record, trace *Series) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}
	stamp(rec)

	params, err := json.Marshal(rec.Params)
	if err != nil {
		return "", err
	}
	values, err := json.Marshal(rec.Values)
	if err != nil {
		return "", err
	}
	var cfg []byte
	if rec.Config != nil {
		if cfg, err = config.Encode(rec.Config); err != nil {
			return "", err
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, model, created, rule, iterations, elapsed_ns, params, vals, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			model = excluded.model,
			created = excluded.created,
			rule = excluded.rule,
			iterations = excluded.iterations,
			elapsed_ns = excluded.elapsed_ns,
			params = excluded.params,
			vals = excluded.vals,
			config = excluded.config
	`, rec.ID, rec.Model, rec.Created.UTC().Format(time.RFC3339Nano), rec.Rule, rec.Iterations,
		int64(rec.Elapsed), string(params), string(values), string(cfg))
	if err != nil {
		return "", err
	}

	if trace != nil {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, trace); err != nil {
			return "", err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO traces (run_id, payload) VALUES (?, ?)
			ON CONFLICT(run_id) DO UPDATE SET payload = excluded.payload
		`, rec.ID, buf.Bytes())
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, model, created, rule, iterations, elapsed_ns, params, vals, config
		FROM runs ORDER BY created
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rec)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, model, created, rule, iterations, elapsed_ns, params, vals, config
		FROM runs WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	return rec, err
}

func (s *SQLiteStore) LoadTrace(ctx context.Context, id string) (*Series, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM traces WHERE run_id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.Load(ctx, id); err != nil {
			return nil, err
		}
		return &Series{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ReadCSV(bytes.NewReader(payload))
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		rec                    Record
		created                string
		elapsed                int64
		params, values, cfgRaw string
	)
	err := sc.Scan(&rec.ID, &rec.Model, &created, &rec.Rule, &rec.Iterations, &elapsed, &params, &values, &cfgRaw)
	if err != nil {
		return nil, err
	}

	if rec.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("run %s: created: %w", rec.ID, err)
	}
	rec.Elapsed = time.Duration(elapsed)
	if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
		return nil, fmt.Errorf("run %s: params: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(values), &rec.Values); err != nil {
		return nil, fmt.Errorf("run %s: values: %w", rec.ID, err)
	}
	if cfgRaw != "" {
		if rec.Config, err = config.Decode([]byte(cfgRaw)); err != nil {
			return nil, fmt.Errorf("run %s: config: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			created TEXT NOT NULL,
			rule TEXT NOT NULL,
			iterations INTEGER NOT NULL,
			elapsed_ns INTEGER NOT NULL,
			params TEXT NOT NULL,
			vals TEXT NOT NULL,
			config TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS traces (
			run_id TEXT PRIMARY KEY REFERENCES runs(id),
			payload BLOB NOT NULL
		);
	`)
	return err
}
