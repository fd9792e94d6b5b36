package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bassista/template_preload/internal/logger"
)

// ErrWaitTimeout is returned when the container did not come up in time.
var ErrWaitTimeout = errors.New("timed out waiting for container")

// WaitUntilRunning polls rt until containerName is running. A container that does
// not exist yet is treated as not running; any other runtime error aborts the wait.
func WaitUntilRunning(ctx context.Context, rt ContainerRuntime, containerName string, poll, timeout time.Duration) error {
	if rt == nil {
		return errors.New("runtime is nil")
	}
	if poll <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", poll)
	}

	log := logger.WithComponent("runtime").WithField("container", containerName)

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		running, err := rt.IsRunning(waitCtx, containerName)
		switch {
		case err == nil && running:
			log.Info("container is running")
			return nil
		case err != nil && !errors.Is(err, ErrContainerNotFound):
			if waitCtx.Err() == nil {
				return err
			}
		default:
			log.Debugf("container not running yet, next check in %v", poll)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w %s after %v", ErrWaitTimeout, containerName, timeout)
		case <-ticker.C:
		}
	}
}
