package runtime

import (
	"fmt"
)

const (
	RuntimeTypeDocker = "docker"
	RuntimeTypeMemory = "memory"
)

// NewRuntimeFromConfig creates a ContainerRuntime based on the runtime type.
// "memory" creates a MemoryRuntime with the given containers marked running;
// "docker" (default) connects to the local Docker daemon.
func NewRuntimeFromConfig(runtimeType string, running ...string) (ContainerRuntime, error) {
	switch runtimeType {
	case RuntimeTypeMemory:
		return NewMemoryRuntimeWith(running...), nil
	case RuntimeTypeDocker, "":
		return NewDockerRuntime()
	default:
		return nil, fmt.Errorf("unknown runtime type: %s (supported: %s, %s)", runtimeType, RuntimeTypeDocker, RuntimeTypeMemory)
	}
}
