package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"syscall"

	"github.com/enrichman/httpgrace"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/bassista/template_preload/internal/api/middleware"
	"github.com/bassista/template_preload/internal/api/route"
	"github.com/bassista/template_preload/internal/cache"
	"github.com/bassista/template_preload/internal/config"
	"github.com/bassista/template_preload/internal/logger"
	"github.com/bassista/template_preload/internal/reporting"
)

func main() {
	flags := pflag.NewFlagSet("templatestub", pflag.ExitOnError)
	flags.IntP("port", "p", 0, "listen port (default 8080, PORT wins)")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		logger.WithComponent("main").Fatalf("configuration error: %v", err)
	}

	if err := logger.SetLevel(cfg.Misc.LogLevel); err != nil {
		logger.WithComponent("main").Warnf("invalid log level '%s', using 'info': %v", cfg.Misc.LogLevel, err)
	}
	logger.WithComponent("main").Debugf("log level set to: %s", logger.Logger.GetLevel().String())
	logger.WithComponent("main").Infof("Template stub will run on port: %d", cfg.Stub.Port)

	reporter := reporting.FromEnv()
	defer reporter.Flush()

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	store := cache.NewStore()
	r := newRouter(cfg.Stub, store, reporter, logger.Logger)
	srv := newStubServer(context.Background(), cfg.Stub, r, store)

	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Stub.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithComponent("main").Fatal(err)
	}
}

func newRouter(stubConfig config.StubConfig, store cache.TemplateStore, reporter reporting.Reporter, baseLogger *logrus.Logger) *gin.Engine {
	r := gin.New()
	// Recovery must come first so ErrorReporting sees panics.
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorReporting(reporter, baseLogger))
	route.SetupRoutes(r, store, stubConfig.RequestTimeout)
	return r
}

// newStubServer serves handler with the stub timeouts and stops gracefully on SIGTERM or SIGINT.
func newStubServer(ctx context.Context, stubConfig config.StubConfig, handler http.Handler, store cache.TemplateStore) *httpgrace.Server {
	httpLog := logger.WithComponent("templatestub")
	writer := logger.Logger.Writer()

	serverOptions := []httpgrace.ServerOption{
		httpgrace.WithReadTimeout(stubConfig.ReadTimeout),
		httpgrace.WithWriteTimeout(stubConfig.WriteTimeout),
		httpgrace.WithIdleTimeout(stubConfig.IdleTimeout),
		func(srv *http.Server) {
			srv.BaseContext = func(net.Listener) context.Context { return ctx }
			srv.ErrorLog = log.New(writer, "[templatestub] ", log.LstdFlags)
		},
	}

	return httpgrace.NewServer(handler,
		httpgrace.WithTimeout(stubConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slog.New(slog.NewTextHandler(writer, nil))),
		httpgrace.WithBeforeShutdown(func() {
			held, _ := store.All()
			httpLog.Infof("shutting down template stub, discarding %d template(s) held in memory", len(held))
		}),
		httpgrace.WithServerOptions(serverOptions...),
	)
}
