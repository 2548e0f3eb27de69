package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore keeps one JSON file per report under a flat directory,
// named {id}.json.
type FileStore struct {
	dir string
}

// NewFileStore creates the reports directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// path maps an ID to its file. IDs must be UUIDs, which also keeps
// path traversal out of the directory.
func (s *FileStore) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *FileStore) Save(ctx context.Context, r *Report) error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("invalid report id %q: %w", r.ID, err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", r.ID, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, r.ID+".json"), data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", r.ID, err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Report, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", id, err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &r, nil
}

func (s *FileStore) List(ctx context.Context) ([]*Report, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list reports dir: %w", err)
	}

	reports := make([]*Report, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read report file %s: %w", e.Name(), err)
		}
		var r Report
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode report file %s: %w", e.Name(), err)
		}
		reports = append(reports, &r)
	}
	return reports, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	return nil
}
