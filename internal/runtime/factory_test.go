package runtime

import (
	"context"
	"testing"
)

func TestNewRuntimeFromConfig_Memory(t *testing.T) {
	rt, err := NewRuntimeFromConfig(RuntimeTypeMemory, "cps-tbdmt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mr, ok := rt.(*MemoryRuntime)
	if !ok {
		t.Fatal("expected MemoryRuntime type")
	}
	if running, _ := mr.IsRunning(context.Background(), "cps-tbdmt"); !running {
		t.Error("expected cps-tbdmt to be running")
	}
}

func TestNewRuntimeFromConfig_Docker(t *testing.T) {
	// client.New does not contact the daemon, so this works without Docker.
	for _, typ := range []string{RuntimeTypeDocker, ""} {
		rt, err := NewRuntimeFromConfig(typ)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", typ, err)
		}
		if _, ok := rt.(*DockerRuntime); !ok {
			t.Errorf("expected DockerRuntime type for %q", typ)
		}
	}
}

func TestNewRuntimeFromConfig_UnknownType(t *testing.T) {
	_, err := NewRuntimeFromConfig("podman")
	if err == nil {
		t.Error("expected error for unknown runtime type")
	}
}
