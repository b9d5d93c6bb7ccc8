package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/dossierworks/dossier/internal/errors"
	"github.com/dossierworks/dossier/internal/logging"
)

// lockExt is appended to a report's path to form its lock file.
const lockExt = ".lock"

// ErrReportLocked is returned when another live process holds a report.
var ErrReportLocked = errors.New("report is locked by another process")

// Lock marks a report as being worked on by one process, so two runs never
// interleave writes to the same file.
type Lock struct {
	ReportID  string    `json:"report_id"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`

	fs     afero.Fs
	path   string
	logger *logging.Logger
}

// Lock acquires the lock of report id. A lock left behind by a process that
// is no longer running is replaced. logger may be nil.
func (s *FileStore) Lock(id string, logger *logging.Logger) (*Lock, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithReport(id)
	path := s.Path(id) + lockExt

	if existing, err := readLock(s.fs, path); err == nil {
		if isProcessAlive(existing.PID) {
			logger.Warn("report locked", "pid", existing.PID, "hostname", existing.Hostname)
			return nil, fmt.Errorf("%w: PID %d on %s", ErrReportLocked, existing.PID, existing.Hostname)
		}
		if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
		logger.Warn("stale lock cleaned", "old_pid", existing.PID)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	lock := &Lock{
		ReportID:  id,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
		fs:        s.fs,
		path:      path,
		logger:    logger,
	}
	data, err := json.Marshal(lock)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL closes the window between the check above and the create.
	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrReportLocked
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		_ = s.fs.Remove(path)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	logger.Debug("report lock acquired", "pid", lock.PID)
	return lock, nil
}

// Release removes the lock file if this process still owns it.
// Safe to call multiple times.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	existing, err := readLock(l.fs, l.path)
	if err != nil || existing.PID != l.PID {
		return nil
	}
	if err := l.fs.Remove(l.path); err != nil {
		return err
	}
	l.logger.Debug("report lock released")
	return nil
}

func readLock(fs afero.Fs, path string) (*Lock, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	return &lock, nil
}

// isProcessAlive sends signal 0, which checks existence without effect.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
