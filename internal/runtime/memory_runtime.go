package runtime

import (
	"context"
	"sync"

	"github.com/bassista/template_preload/internal/logger"
)

// MemoryRuntime keeps container state in memory. It stands in for Docker in
// tests and in environments where the target is not a local container.
type MemoryRuntime struct {
	mu      sync.RWMutex
	running map[string]bool
}

func NewMemoryRuntime() *MemoryRuntime {
	return &MemoryRuntime{running: map[string]bool{}}
}

// NewMemoryRuntimeWith starts with the given containers marked as running.
func NewMemoryRuntimeWith(running ...string) *MemoryRuntime {
	mr := NewMemoryRuntime()
	for _, name := range running {
		if name == "" {
			continue
		}
		mr.running[name] = true
	}
	return mr
}

func (m *MemoryRuntime) IsRunning(_ context.Context, containerName string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	isRunning := m.running[containerName]
	logger.WithComponent("memory-runtime").Debugf("checking if container is running: %s, result: %v", containerName, isRunning)
	return isRunning, nil
}
