package queuectl

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
)

// Setting keys recognised by SetSetting.
const (
	KeyMaxRetries  = "max_retries"
	KeyBackoffBase = "backoff_base"
	KeyWorkerCount = "worker_count"
)

// SettingKeys lists the recognised keys in display order.
var SettingKeys = []string{KeyMaxRetries, KeyBackoffBase, KeyWorkerCount}

// Apply parses value for key and returns the updated settings.
func (s Settings) Apply(key, value string) (Settings, error) {
	switch key {
	case KeyMaxRetries, KeyWorkerCount:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return s, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidSetting, key, value)
		}
		if key == KeyMaxRetries {
			s.MaxRetries = n
		} else {
			s.WorkerCount = n
		}
	case KeyBackoffBase:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || !validBase(f) {
			return s, fmt.Errorf("%w: %s must be a finite number of at least 1, got %q", ErrInvalidSetting, key, value)
		}
		s.BackoffBase = f
	default:
		return s, fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return s, nil
}

// Get returns the value of key formatted for display.
func (s Settings) Get(key string) (string, error) {
	switch key {
	case KeyMaxRetries:
		return strconv.Itoa(s.MaxRetries), nil
	case KeyBackoffBase:
		return strconv.FormatFloat(s.BackoffBase, 'g', -1, 64), nil
	case KeyWorkerCount:
		return strconv.Itoa(s.WorkerCount), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownSetting, key)
}

// Normalize replaces out-of-range values with defaults.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.MaxRetries < 1 {
		s.MaxRetries = def.MaxRetries
	}
	if !validBase(s.BackoffBase) {
		s.BackoffBase = def.BackoffBase
	}
	if s.WorkerCount < 1 {
		s.WorkerCount = def.WorkerCount
	}
	return s
}

// validBase keeps retry delays non-decreasing: base^attempts only grows with
// attempts when base >= 1.
func validBase(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 1
}

// MemorySettings is a SettingsStore that lives only in process memory.
type MemorySettings struct {
	mu sync.Mutex
	s  Settings
}

func NewMemorySettings(s Settings) *MemorySettings {
	return &MemorySettings{s: s.Normalize()}
}

func (m *MemorySettings) Load(_ context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemorySettings) Set(_ context.Context, key, value string) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := m.s.Apply(key, value)
	if err != nil {
		return m.s, err
	}
	m.s = next
	return next, nil
}
