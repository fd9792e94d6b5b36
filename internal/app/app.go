package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bassista/template_preload/internal/client"
	"github.com/bassista/template_preload/internal/config"
	"github.com/bassista/template_preload/internal/logger"
	"github.com/bassista/template_preload/internal/preloader"
	"github.com/bassista/template_preload/internal/reporting"
	"github.com/bassista/template_preload/internal/repository"
	"github.com/bassista/template_preload/internal/runtime"
)

// ErrAborted is returned when the operator declines the confirmation prompt.
var ErrAborted = errors.New("preload aborted by user")

// App is the application container (immutable dependencies + lifecycle context).
type App struct {
	Config    *config.Config
	Repo      repository.Repository
	Preloader *preloader.Preloader
	Runtime   runtime.ContainerRuntime
	Confirmer Confirmer
	Reporter  reporting.Reporter

	BaseCtx context.Context
	Cancel  context.CancelFunc
}

type Option func(*App)

// WithRuntime sets the runtime used to wait for Config.Wait.Container.
func WithRuntime(rt runtime.ContainerRuntime) Option {
	return func(a *App) { a.Runtime = rt }
}

func WithConfirmer(c Confirmer) Option {
	return func(a *App) { a.Confirmer = c }
}

func WithReporter(r reporting.Reporter) Option {
	return func(a *App) { a.Reporter = r }
}

// WithContext derives the lifecycle context from parent instead of context.Background.
func WithContext(parent context.Context) Option {
	return func(a *App) { a.BaseCtx = parent }
}

func New(cfg *config.Config, repo repository.Repository, pl *preloader.Preloader, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if repo == nil {
		return nil, errors.New("repo is nil")
	}
	if pl == nil {
		return nil, errors.New("preloader is nil")
	}

	a := &App{
		Config:    cfg,
		Repo:      repo,
		Preloader: pl,
		Confirmer: SurveyConfirmer{},
		Reporter:  reporting.Noop{},
		BaseCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if cfg.Wait.Container != "" && a.Runtime == nil {
		return nil, errors.New("runtime is nil but a wait container is configured")
	}

	a.BaseCtx, a.Cancel = context.WithCancel(a.BaseCtx)
	return a, nil
}

// Build wires an App from configuration.
func Build(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	repo, err := repository.NewJSONRepository(cfg.Data.FilePath, repository.WithStrict(cfg.Data.Strict))
	if err != nil {
		return nil, fmt.Errorf("cannot init repository: %w", err)
	}

	tc, err := client.New(client.Config{
		URL:                cfg.Target.URL,
		InsecureSkipVerify: cfg.Target.InsecureSkipVerify,
		Timeout:            cfg.Target.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot init template client: %w", err)
	}

	pl, err := preloader.New(tc, preloader.WithDelay(cfg.Preload.Delay))
	if err != nil {
		return nil, fmt.Errorf("cannot init preloader: %w", err)
	}

	if cfg.Wait.Container != "" {
		// The memory runtime treats the configured container as already up.
		rt, err := runtime.NewRuntimeFromConfig(cfg.Wait.RuntimeType, cfg.Wait.Container)
		if err != nil {
			return nil, fmt.Errorf("cannot init runtime: %w", err)
		}
		opts = append([]Option{WithRuntime(rt)}, opts...)
	}

	return New(cfg, repo, pl, opts...)
}

func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()
}

// Run performs one preload pass and, in watch mode, keeps resubmitting the
// batch whenever the file changes until the app is shut down.
func (a *App) Run() error {
	batch, _, err := a.RunOnce(a.BaseCtx)
	if err != nil {
		return err
	}
	if !a.Config.Data.Watch {
		return nil
	}
	return a.watch(batch)
}

// RunOnce loads the batch, waits for the target container if configured, asks
// for confirmation if configured and submits every record.
func (a *App) RunOnce(ctx context.Context) (*repository.TemplateBatch, preloader.Report, error) {
	log := logger.WithComponent("app")

	batch, err := a.Repo.Load(ctx)
	if err != nil {
		return nil, preloader.Report{}, err
	}
	log.Infof("loaded %d template(s) from %s", batch.Len(), a.Repo.Path())

	if name := a.Config.Wait.Container; name != "" {
		log.Infof("waiting for container %s to be running", name)
		if err := runtime.WaitUntilRunning(ctx, a.Runtime, name, a.Config.Wait.Poll, a.Config.Wait.Timeout); err != nil {
			return batch, preloader.Report{}, err
		}
	}

	if a.Config.Preload.Confirm && batch.Len() > 0 {
		msg := fmt.Sprintf("Submit %d template(s) to %s?", batch.Len(), a.Config.Target.URL)
		ok, err := a.Confirmer.Confirm(msg)
		if err != nil {
			return batch, preloader.Report{}, fmt.Errorf("confirmation prompt: %w", err)
		}
		if !ok {
			return batch, preloader.Report{}, ErrAborted
		}
	}

	report, err := a.Preloader.Run(ctx, batch)
	return batch, report, err
}

func (a *App) watch(last *repository.TemplateBatch) error {
	log := logger.WithComponent("app")

	changes := make(chan struct{}, 1)
	err := a.Repo.StartWatcher(a.BaseCtx, func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("cannot start template file watcher: %w", err)
	}
	log.Infof("watching %s for changes", a.Repo.Path())

	for {
		select {
		case <-a.BaseCtx.Done():
			log.Info("watch stopped")
			return nil
		case <-changes:
		}

		batch, err := a.Repo.Load(a.BaseCtx)
		if err != nil {
			// A half-written file fails to parse; the next event retries.
			log.Warnf("reload failed, keeping previous batch: %v", err)
			continue
		}
		if batch.Equal(last) {
			log.Debug("template file changed on disk but content is identical, skipping")
			continue
		}

		last = batch
		if _, err := a.Preloader.Run(a.BaseCtx, batch); err != nil {
			if a.BaseCtx.Err() != nil {
				return nil
			}
			log.Errorf("preload after file change failed: %v", err)
			a.Reporter.Notify(err, nil, "preload", "watch")
		}
	}
}
