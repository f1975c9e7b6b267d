package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/san-kum/cardiosim/internal/config"
)

const (
	metadataFile = "metadata.json"
	configFile   = "config.yaml"
	traceFile    = "trace.csv"
)

// FileStore keeps each run in its own directory under baseDir.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) Init(ctx context.Context) error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *FileStore) Save(ctx context.Context, rec *Record, trace *Series) (string, error) {
	stamp(rec)
	runDir := filepath.Join(s.baseDir, rec.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), rec); err != nil {
		return "", err
	}
	if rec.Config != nil {
		if err := config.Save(filepath.Join(runDir, configFile), rec.Config); err != nil {
			return "", err
		}
	}
	if trace != nil {
		f, err := os.Create(filepath.Join(runDir, traceFile))
		if err != nil {
			return "", err
		}
		defer f.Close()
		if err := WriteCSV(f, trace); err != nil {
			return "", err
		}
	}
	return rec.ID, nil
}

// List returns every readable run, oldest first. Directories without valid
// metadata are skipped.
func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, err
	}

	runs := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := s.readMetadata(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *rec)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Created.Before(runs[j].Created) })
	return runs, nil
}

func (s *FileStore) Load(ctx context.Context, id string) (*Record, error) {
	rec, err := s.readMetadata(id)
	if err != nil {
		return nil, err
	}

	cfgPath := filepath.Join(s.baseDir, id, configFile)
	if _, err := os.Stat(cfgPath); err == nil {
		if rec.Config, err = config.Load(cfgPath); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (s *FileStore) LoadTrace(ctx context.Context, id string) (*Series, error) {
	f, err := os.Open(filepath.Join(s.baseDir, id, traceFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if _, statErr := os.Stat(filepath.Join(s.baseDir, id)); statErr != nil {
				return nil, notFound(id)
			}
			return &Series{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) readMetadata(id string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(id)
		}
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
