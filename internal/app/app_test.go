package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bassista/template_preload/internal/client"
	"github.com/bassista/template_preload/internal/config"
	"github.com/bassista/template_preload/internal/preloader"
	"github.com/bassista/template_preload/internal/repository"
	"github.com/bassista/template_preload/internal/runtime"
)

// MockConfirmer is a mock implementation of Confirmer
type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Confirm(message string) (bool, error) {
	args := m.Called(message)
	return args.Bool(0), args.Error(1)
}

// bootingRuntime reports every container as running once readyAt has passed.
type bootingRuntime struct {
	readyAt time.Time
}

func (b *bootingRuntime) IsRunning(context.Context, string) (bool, error) {
	return !time.Now().Before(b.readyAt), nil
}

// endpoint collects request bodies posted to it.
type endpoint struct {
	mu     sync.Mutex
	bodies []string
	srv    *httptest.Server
}

func newEndpoint(t *testing.T) *endpoint {
	t.Helper()
	e := &endpoint{}
	e.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		e.mu.Lock()
		e.bodies = append(e.bodies, string(raw))
		e.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(e.srv.Close)
	return e
}

func (e *endpoint) received() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...)
}

func testConfig(t *testing.T, filePath, url string) *config.Config {
	t.Helper()
	return &config.Config{
		Data:    config.DataConfig{FilePath: filePath},
		Target:  config.TargetConfig{URL: url},
		Preload: config.PreloadConfig{Delay: 0},
		Wait: config.WaitConfig{
			RuntimeType: config.RuntimeTypeMemory,
			Poll:        5 * time.Millisecond,
			Timeout:     time.Second,
		},
		Stub: config.StubConfig{Port: 8080},
	}
}

func writeBatch(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samplepreload.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	repo, err := repository.NewJSONRepository(cfg.Data.FilePath)
	require.NoError(t, err)
	pl, err := preloader.New(client.NewWithHTTPClient(cfg.Target.URL, http.DefaultClient), preloader.WithDelay(cfg.Preload.Delay))
	require.NoError(t, err)
	a, err := New(cfg, repo, pl, opts...)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func TestNew_Validation(t *testing.T) {
	cfg := testConfig(t, "x.json", "http://localhost/templates")
	repo, _ := repository.NewJSONRepository("x.json")
	pl, _ := preloader.New(client.NewWithHTTPClient("http://localhost/templates", nil))

	_, err := New(nil, repo, pl)
	assert.Error(t, err)
	_, err = New(cfg, nil, pl)
	assert.Error(t, err)
	_, err = New(cfg, repo, nil)
	assert.Error(t, err)

	cfg.Wait.Container = "cps-tbdmt"
	_, err = New(cfg, repo, pl)
	assert.Error(t, err, "wait container without runtime must be rejected")
}

func TestApp_Shutdown(t *testing.T) {
	cfg := testConfig(t, "x.json", "http://localhost/templates")
	a := newTestApp(t, cfg)

	a.Shutdown()
	select {
	case <-a.BaseCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected context to be cancelled")
	}

	var nilApp *App
	assert.NotPanics(t, nilApp.Shutdown)
	assert.NotPanics(t, (&App{}).Shutdown)
}

func TestApp_Run_SubmitsBatch(t *testing.T) {
	ep := newEndpoint(t)
	cfg := testConfig(t, writeBatch(t, `[{"name":"A"},{"name":"B"}]`), ep.srv.URL+"/templates")
	a := newTestApp(t, cfg)

	require.NoError(t, a.Run())
	assert.Equal(t, []string{`{"name":"A"}`, `{"name":"B"}`}, ep.received())
}

func TestApp_Run_MissingFileSendsNothing(t *testing.T) {
	ep := newEndpoint(t)
	cfg := testConfig(t, filepath.Join(t.TempDir(), "samplepreload.json"), ep.srv.URL)
	a := newTestApp(t, cfg)

	err := a.Run()
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, ep.received())
}

func TestApp_Run_MalformedFileSendsNothing(t *testing.T) {
	ep := newEndpoint(t)
	cfg := testConfig(t, writeBatch(t, `[{"name":"A"}, {"name":`), ep.srv.URL)
	a := newTestApp(t, cfg)

	assert.Error(t, a.Run())
	assert.Empty(t, ep.received())
}

func TestApp_Run_EmptyBatch(t *testing.T) {
	ep := newEndpoint(t)
	cfg := testConfig(t, writeBatch(t, `[]`), ep.srv.URL)
	a := newTestApp(t, cfg)

	assert.NoError(t, a.Run())
	assert.Empty(t, ep.received())
}

func TestApp_RunOnce_WaitsForContainer(t *testing.T) {
	ep := newEndpoint(t)
	cfg := testConfig(t, writeBatch(t, `[{"name":"A"}]`), ep.srv.URL)
	cfg.Wait.Container = "cps-tbdmt"

	a := newTestApp(t, cfg, WithRuntime(&bootingRuntime{readyAt: time.Now().Add(30 * time.Millisecond)}))

	_, report, err := a.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Submitted())
	assert.Len(t, ep.received(), 1)
}

func TestApp_RunOnce_WaitTimeoutSendsNothing(t *testing.T) {
	ep := newEndpoint(t)
	cfg := testConfig(t, writeBatch(t, `[{"name":"A"}]`), ep.srv.URL)
	cfg.Wait.Container = "cps-tbdmt"
	cfg.Wait.Timeout = 30 * time.Millisecond

	a := newTestApp(t, cfg, WithRuntime(runtime.NewMemoryRuntime()))

	_, _, err := a.RunOnce(context.Background())
	assert.ErrorIs(t, err, runtime.ErrWaitTimeout)
	assert.Empty(t, ep.received())
}

func TestApp_RunOnce_Confirmation(t *testing.T) {
	tests := []struct {
		name      string
		answer    bool
		wantErr   error
		wantSends int
	}{
		{"accepted", true, nil, 1},
		{"declined", false, ErrAborted, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := newEndpoint(t)
			cfg := testConfig(t, writeBatch(t, `[{"name":"A"}]`), ep.srv.URL)
			cfg.Preload.Confirm = true

			confirmer := &MockConfirmer{}
			confirmer.On("Confirm", "Submit 1 template(s) to "+ep.srv.URL+"?").Return(tt.answer, nil).Once()

			a := newTestApp(t, cfg, WithConfirmer(confirmer))
			_, _, err := a.RunOnce(context.Background())

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, ep.received(), tt.wantSends)
			confirmer.AssertExpectations(t)
		})
	}
}

func TestApp_RunOnce_ConfirmationSkippedForEmptyBatch(t *testing.T) {
	ep := newEndpoint(t)
	cfg := testConfig(t, writeBatch(t, `[]`), ep.srv.URL)
	cfg.Preload.Confirm = true

	confirmer := &MockConfirmer{}
	a := newTestApp(t, cfg, WithConfirmer(confirmer))

	_, _, err := a.RunOnce(context.Background())
	assert.NoError(t, err)
	confirmer.AssertNotCalled(t, "Confirm", mock.Anything)
}

func TestApp_Run_WatchResubmitsOnChange(t *testing.T) {
	ep := newEndpoint(t)
	path := writeBatch(t, `[{"name":"A"}]`)
	cfg := testConfig(t, path, ep.srv.URL)
	cfg.Data.Watch = true
	a := newTestApp(t, cfg)

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	require.Eventually(t, func() bool { return len(ep.received()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// The watcher starts right after the first pass; rewrite until the change is picked up.
	// Identical rewrites after that are skipped, and the tick outlasts the debounce.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`[{"name":"B"},{"name":"C"}]`), 0644)
		return len(ep.received()) == 3
	}, 5*time.Second, 300*time.Millisecond)
	assert.Equal(t, []string{`{"name":"A"}`, `{"name":"B"}`, `{"name":"C"}`}, ep.received())

	a.Shutdown()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not stop after shutdown")
	}
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t, "samplepreload.json", "http://cps-tbdmt:8080/templates")
	cfg.Wait.Container = "cps-tbdmt"

	a, err := Build(cfg)
	require.NoError(t, err)
	defer a.Shutdown()

	assert.NotNil(t, a.Runtime)
	running, err := a.Runtime.IsRunning(context.Background(), "cps-tbdmt")
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, "samplepreload.json", a.Repo.Path())

	_, err = Build(nil)
	assert.Error(t, err)
}
