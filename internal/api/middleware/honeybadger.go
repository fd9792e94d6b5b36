package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bassista/template_preload/internal/reporting"
)

// ErrorReporting forwards panics and error responses to the reporter.
// On panic, it notifies and re-panics to allow gin.Recovery to handle the response.
// 404s are expected on the templates API and are not reported.
func ErrorReporting(reporter reporting.Reporter, logger *logrus.Logger) gin.HandlerFunc {
	if reporter == nil {
		reporter = reporting.Noop{}
	}

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				reporter.Notify(fmt.Errorf("panic: %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, rec, debug.Stack()),
					c.Request, "panic", "http")
				logger.Error("Recovered from panic, notified error reporter: ", rec)
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		if status < 400 || status == 404 {
			return
		}
		if status >= 500 {
			reporter.Notify(fmt.Errorf("error: HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path), c.Request, "5XX", "http")
		} else {
			reporter.Notify(fmt.Errorf("warning: HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path), nil, "4XX", "http")
		}
		logger.Warnf("reported HTTP %d for %s %s", status, c.Request.Method, c.Request.URL.Path)
	}
}
