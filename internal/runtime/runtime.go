package runtime

import (
	"context"
	"errors"
)

// ErrContainerNotFound is returned by a runtime that does not know the container (yet).
var ErrContainerNotFound = errors.New("container not found")

// ContainerRuntime reports whether the container serving the templates endpoint is up.
type ContainerRuntime interface {
	IsRunning(ctx context.Context, containerName string) (bool, error)
}
