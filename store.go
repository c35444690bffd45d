package queuectl

import (
	"context"
)

// Store persists the job collection. The whole collection is loaded and
// saved at once; callers serialize read-modify-write cycles themselves.
//
// Implementations return an error wrapping ErrCorruptStore, and a nil
// collection, when the persisted data cannot be decoded.
type Store interface {
	LoadAll(ctx context.Context) ([]JobRecord, error)
	SaveAll(ctx context.Context, jobs []JobRecord) error
}

// SettingsStore persists Settings.
type SettingsStore interface {
	Load(ctx context.Context) (Settings, error)
	Set(ctx context.Context, key, value string) (Settings, error)
}

// Publisher receives job lifecycle events. *nsq.Producer satisfies it.
type Publisher interface {
	Publish(topic string, body []byte) error
}
