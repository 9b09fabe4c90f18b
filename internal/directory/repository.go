package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"medbot-server/internal/models"
)

// FileRepository keeps the directory as a JSON array on disk.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository creates a repository backed by path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Load reads the directory. A missing file is an empty directory.
func (r *FileRepository) Load(ctx context.Context) ([]models.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	var doctors []models.Doctor
	if err := json.Unmarshal(data, &doctors); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return doctors, nil
}

// Save rewrites the whole file through a temp file and rename.
func (r *FileRepository) Save(ctx context.Context, doctors []models.Doctor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if doctors == nil {
		doctors = []models.Doctor{}
	}
	data, err := json.MarshalIndent(doctors, "", "  ")
	if err != nil {
		return fmt.Errorf("encode doctors: %w", err)
	}
	return writeFileAtomic(r.path, append(data, '\n'))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
