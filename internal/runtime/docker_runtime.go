package runtime

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/moby/moby/client"
)

// DockerClient is the subset of the moby client used by DockerRuntime.
type DockerClient interface {
	ContainerInspect(ctx context.Context, containerID string, options client.ContainerInspectOptions) (client.ContainerInspectResult, error)
}

type DockerRuntime struct {
	cli DockerClient
}

// NewDockerRuntime connects using the standard DOCKER_* environment variables.
func NewDockerRuntime() (*DockerRuntime, error) {
	cli, err := client.New(client.FromEnv)
	if err != nil {
		return nil, fmt.Errorf("error creating Docker client: %w", err)
	}
	return &DockerRuntime{cli: cli}, nil
}

func NewDockerRuntimeWithClient(cli DockerClient) *DockerRuntime {
	return &DockerRuntime{cli: cli}
}

func (d *DockerRuntime) IsRunning(ctx context.Context, containerName string) (bool, error) {
	inspect, err := d.cli.ContainerInspect(ctx, containerName, client.ContainerInspectOptions{})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, fmt.Errorf("container %s: %w", containerName, ErrContainerNotFound)
		}
		return false, fmt.Errorf("error checking status of container %s: %w", containerName, err)
	}

	if inspect.Container.State == nil {
		return false, nil
	}
	return inspect.Container.State.Running, nil
}
