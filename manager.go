package queuectl

import (
	"context"
	"fmt"
	"sync"

	"github.com/sky93/queuectl/internal/telemetry"
)

// workerHandle is the runtime-only bookkeeping for one worker goroutine.
type workerHandle struct {
	id     string
	cancel context.CancelFunc
}

// Manager owns the worker handles of a Queue.
type Manager struct {
	queue *Queue

	mu      sync.Mutex
	workers map[string]*workerHandle
	wg      sync.WaitGroup
	// waiting counts wait calls whose wg.Wait has not returned; start is
	// refused while it is non-zero so wg.Add never races wg.Wait.
	waiting int
}

func newManager(q *Queue) *Manager {
	return &Manager{
		queue:   q,
		workers: make(map[string]*workerHandle),
	}
}

// start launches worker-1..worker-count, skipping ids that are already
// running, and returns how many were launched.
func (m *Manager) start(ctx context.Context, count int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.waiting > 0 {
		return 0, ErrWorkersStopping
	}
	started := 0
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("worker-%d", i)
		if _, ok := m.workers[id]; ok {
			continue
		}
		wctx, cancel := context.WithCancel(ctx)
		h := &workerHandle{id: id, cancel: cancel}
		m.workers[id] = h

		w := &Worker{
			id:    id,
			cfg:   m.queue.cfg,
			queue: m.queue,
		}
		m.wg.Add(1)
		telemetry.WorkersActive.Inc()
		go func() {
			defer m.wg.Done()
			defer telemetry.WorkersActive.Dec()
			defer m.release(h)
			w.Run(wctx)
		}()
		started++
	}
	return started, nil
}

// release forgets h once its goroutine returns, unless it was already
// replaced or stopped.
func (m *Manager) release(h *workerHandle) {
	h.cancel()
	m.mu.Lock()
	if m.workers[h.id] == h {
		delete(m.workers, h.id)
	}
	m.mu.Unlock()
}

// stop cancels every worker and forgets the handles without waiting.
func (m *Manager) stop() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.workers)
	for id, h := range m.workers {
		h.cancel()
		delete(m.workers, id)
	}
	return n
}

// wait joins every worker goroutine ever started by this manager.
func (m *Manager) wait(ctx context.Context) error {
	m.mu.Lock()
	m.waiting++
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		m.mu.Lock()
		m.waiting--
		m.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for workers: %w", ctx.Err())
	}
}

func (m *Manager) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workers)
}
