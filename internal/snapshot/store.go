package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/dossierworks/dossier/internal/artifact"
	"github.com/dossierworks/dossier/internal/errors"
)

const reportExt = ".json"

// Summary is the listing entry of a stored report.
type Summary struct {
	ID        string
	Title     string
	UpdatedAt time.Time
	Path      string
}

// FileStore keeps one JSON file per report in a directory.
type FileStore struct {
	fs  afero.Fs
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

// Dir returns the directory reports are stored in.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file a report with the given ID is stored in.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+reportExt)
}

func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return errors.NewReportError(fmt.Sprintf("invalid report id %q", id), errors.ErrInvalidInput)
	}
	return nil
}

// Save writes r atomically.
func (s *FileStore) Save(ctx context.Context, r *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validID(r.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.NewReportError("failed to encode report", err).WithReportID(r.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(r.ID)
	if err := s.atomicWrite(path, data); err != nil {
		return errors.NewReportError("failed to save report", err).
			WithReportID(r.ID).WithPath(path).WithRetryable(true)
	}
	return nil
}

// atomicWrite writes data to a temp file next to path and renames it into
// place, so a reader never sees a partial report.
func (s *FileStore) atomicWrite(path string, data []byte) error {
	tmp, err := afero.TempFile(s.fs, filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = s.fs.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := s.fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

// Load reads the report with the given ID. A missing file yields
// ErrReportNotFound; an unreadable one ErrReportCorrupted.
func (s *FileStore) Load(ctx context.Context, id string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

func (s *FileStore) read(id string) (*Report, error) {
	path := s.Path(id)
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewReportError("report not found", errors.ErrReportNotFound).
				WithReportID(id).WithPath(path)
		}
		return nil, errors.NewReportError("failed to read report", err).
			WithReportID(id).WithPath(path).WithRetryable(true)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.NewReportError(fmt.Sprintf("invalid JSON: %v", err), errors.ErrReportCorrupted).
			WithReportID(id).WithPath(path)
	}
	if r.ID != id {
		return nil, errors.NewReportError(fmt.Sprintf("file holds report %q", r.ID), errors.ErrReportCorrupted).
			WithReportID(id).WithPath(path)
	}
	r.normalize()
	return &r, nil
}

// normalize replaces nil maps so callers can write to a loaded report.
func (r *Report) normalize() {
	if r.StageResults == nil {
		r.StageResults = map[string]string{}
	}
	if r.ConceptReportVersions == nil {
		r.ConceptReportVersions = map[string]string{}
	}
	if r.SubstepResults == nil {
		r.SubstepResults = map[string]artifact.SubstepResult{}
	}
}

// List returns the stored reports, most recently updated first. Files that
// cannot be decoded are skipped.
func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	var out []Summary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != reportExt {
			continue
		}
		r, err := s.read(strings.TrimSuffix(name, reportExt))
		if err != nil {
			continue
		}
		out = append(out, Summary{ID: r.ID, Title: r.Title, UpdatedAt: r.UpdatedAt, Path: s.Path(r.ID)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes the report with the given ID.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(id)
	if err := s.fs.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.NewReportError("report not found", errors.ErrReportNotFound).
				WithReportID(id).WithPath(path)
		}
		return errors.NewReportError("failed to delete report", err).WithReportID(id).WithPath(path)
	}
	return nil
}

// Exists reports whether a report with the given ID is stored.
func (s *FileStore) Exists(id string) bool {
	if validID(id) != nil {
		return false
	}
	ok, _ := afero.Exists(s.fs, s.Path(id))
	return ok
}
