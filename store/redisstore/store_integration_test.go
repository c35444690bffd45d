package redisstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sky93/queuectl"
	"github.com/sky93/queuectl/store/redisstore"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	client := redisstore.NewClient(startRedis(t))
	s := redisstore.New(client, "")
	defer s.Close()

	t.Run("MissingKeyIsEmpty", func(t *testing.T) {
		jobs, err := s.LoadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		now := time.Now().UTC()
		in := []queuectl.JobRecord{
			{ID: "2", Command: "echo 2", State: queuectl.JobDead, Attempts: 3, MaxRetries: 3, CreatedAt: now, UpdatedAt: now},
			{ID: "1", Command: "echo 1", State: queuectl.JobPending, MaxRetries: 3, CreatedAt: now, UpdatedAt: now},
		}
		require.NoError(t, s.SaveAll(ctx, in))

		out, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "2", out[0].ID)
		assert.Equal(t, queuectl.JobDead, out[0].State)
	})

	t.Run("CorruptValue", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, redisstore.DefaultKey, "not json", 0).Err())

		jobs, err := s.LoadAll(ctx)
		assert.ErrorIs(t, err, queuectl.ErrCorruptStore)
		assert.Nil(t, jobs)
	})
}
