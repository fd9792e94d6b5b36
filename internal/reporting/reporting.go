package reporting

import (
	"net/http"
	"os"

	honeybadger "github.com/honeybadger-io/honeybadger-go"

	"github.com/bassista/template_preload/internal/logger"
)

// Reporter forwards errors to an external error tracker.
type Reporter interface {
	Notify(err error, req *http.Request, tags ...string)
	Flush()
}

// Noop discards every notification.
type Noop struct{}

func (Noop) Notify(error, *http.Request, ...string) {}
func (Noop) Flush()                                 {}

// Honeybadger reports to honeybadger.io.
type Honeybadger struct {
	client *honeybadger.Client
}

// NewHoneybadger builds a reporter for the given API key and environment name.
func NewHoneybadger(apiKey, env string) *Honeybadger {
	return &Honeybadger{client: honeybadger.New(honeybadger.Configuration{
		APIKey: apiKey,
		Env:    env,
	})}
}

func (h *Honeybadger) Notify(err error, req *http.Request, tags ...string) {
	if err == nil {
		return
	}
	args := []interface{}{honeybadger.Tags(tags)}
	if req != nil {
		args = append(args, req)
	}
	if _, nerr := h.client.Notify(err, args...); nerr != nil {
		logger.WithComponent("reporting").Warnf("honeybadger notify failed: %v", nerr)
	}
}

func (h *Honeybadger) Flush() {
	h.client.Flush()
}

// FromEnv returns a Honeybadger reporter when HONEYBADGER_API_KEY is set, Noop otherwise.
func FromEnv() Reporter {
	apiKey := os.Getenv("HONEYBADGER_API_KEY")
	if apiKey == "" {
		logger.WithComponent("reporting").Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return Noop{}
	}
	logger.WithComponent("reporting").Info("Honeybadger error reporting is enabled.")
	return NewHoneybadger(apiKey, os.Getenv("GO_ENV"))
}
