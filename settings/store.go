// Package settings persists queuectl.Settings as a JSON file through viper.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/sky93/queuectl"
)

// DefaultFileName is the settings file created inside the data directory.
const DefaultFileName = "config.json"

// FileStore is a queuectl.SettingsStore backed by a JSON file. The file is
// read on every Load so edits from other invocations are picked up.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewFileStore returns a FileStore for path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Path is the settings file location.
func (s *FileStore) Path() string { return s.path }

// Load reads the file. A missing file is created with the defaults; a file
// that cannot be parsed is reported as a warning and the defaults are used.
func (s *FileStore) Load(_ context.Context) (queuectl.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Set validates value for key, then writes the updated settings.
func (s *FileStore) Set(_ context.Context, key, value string) (queuectl.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.load()
	if err != nil {
		return cur, err
	}
	next, err := cur.Apply(key, value)
	if err != nil {
		return cur, err
	}
	if err := s.write(next); err != nil {
		return cur, err
	}
	return next, nil
}

func (s *FileStore) load() (queuectl.Settings, error) {
	def := queuectl.DefaultSettings()

	v := s.viper()
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return def, s.write(def)
		}
		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			s.logger.Warn("settings file is corrupt, using defaults",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
			return def, nil
		}
		return def, fmt.Errorf("read settings %s: %w", s.path, err)
	}

	return queuectl.Settings{
		MaxRetries:  v.GetInt(queuectl.KeyMaxRetries),
		BackoffBase: v.GetFloat64(queuectl.KeyBackoffBase),
		WorkerCount: v.GetInt(queuectl.KeyWorkerCount),
	}.Normalize(), nil
}

func (s *FileStore) write(set queuectl.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	v := s.viper()
	v.Set(queuectl.KeyMaxRetries, set.MaxRetries)
	v.Set(queuectl.KeyBackoffBase, set.BackoffBase)
	v.Set(queuectl.KeyWorkerCount, set.WorkerCount)
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) viper() *viper.Viper {
	def := queuectl.DefaultSettings()
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	v.SetDefault(queuectl.KeyMaxRetries, def.MaxRetries)
	v.SetDefault(queuectl.KeyBackoffBase, def.BackoffBase)
	v.SetDefault(queuectl.KeyWorkerCount, def.WorkerCount)
	return v
}
