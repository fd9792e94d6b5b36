package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bassista/template_preload/internal/app"
	"github.com/bassista/template_preload/internal/config"
	"github.com/bassista/template_preload/internal/logger"
	"github.com/bassista/template_preload/internal/reporting"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logger.WithComponent("main").Fatalf("preload failed: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "preload",
		Short:         "Submit template records from a JSON file to a templates endpoint, one at a time",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.Flags())
		},
	}

	f := cmd.Flags()
	f.StringP("file", "f", "", "template batch file (default samplepreload.json)")
	f.StringP("url", "u", "", "templates endpoint (default http://cps-tbdmt:8080/templates)")
	f.Bool("insecure", false, "skip TLS certificate verification")
	f.Duration("timeout", 0, "per-request timeout, 0 disables it")
	f.DurationP("delay", "d", 0, "pause before each request (default 8s)")
	f.Bool("confirm", false, "ask before sending anything")
	f.Bool("strict", false, "reject records that are not valid template requests")
	f.Bool("watch", false, "resubmit the batch whenever the file changes")
	f.String("wait-container", "", "wait for this container to be running before sending")
	f.String("wait-runtime", "", "runtime used to check the container: docker or memory")
	f.String("log-level", "", "log level (trace, debug, info, warn, error)")
	return cmd
}

func run(ctx context.Context, flags *pflag.FlagSet) error {
	log := logger.WithComponent("main")

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := logger.SetLevel(cfg.Misc.LogLevel); err != nil {
		log.Warnf("invalid log level '%s', using 'info': %v", cfg.Misc.LogLevel, err)
	}
	log.Debugf("log level set to: %s", logger.Logger.GetLevel().String())

	reporter := reporting.FromEnv()
	defer reporter.Flush()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(cfg, app.WithContext(ctx), app.WithReporter(reporter))
	if err != nil {
		reporter.Notify(err, nil, "preload", "init")
		return err
	}
	defer a.Shutdown()

	log.Infof("preloading %s -> %s (delay %v, insecure %v)", cfg.Data.FilePath, cfg.Target.URL, cfg.Preload.Delay, cfg.Target.InsecureSkipVerify)

	if err := a.Run(); err != nil {
		if errors.Is(err, app.ErrAborted) || errors.Is(err, context.Canceled) {
			log.Warnf("nothing more sent: %v", err)
			return err
		}
		reporter.Notify(err, nil, "preload")
		return err
	}
	return nil
}
