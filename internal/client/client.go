package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/template_preload/internal/logger"
	"github.com/bassista/template_preload/internal/repository"
)

// Headers sent with every template submission.
const (
	HeaderAccept      = "application/json"
	HeaderContentType = "application/json"
)

// Outcome is what the preloader keeps of a response: status code and reason phrase.
type Outcome struct {
	StatusCode int
	Reason     string
}

// Publisher submits one template record.
type Publisher interface {
	Publish(ctx context.Context, record repository.TemplateRecord) (Outcome, error)
}

type Config struct {
	URL                string
	InsecureSkipVerify bool
	// Timeout of 0 means no client-side timeout.
	Timeout time.Duration
}

// TemplateClient posts template records to a templates endpoint.
type TemplateClient struct {
	url  string
	http *http.Client
}

var _ Publisher = (*TemplateClient)(nil)

// New builds a TemplateClient with its own transport, so disabling TLS
// verification never affects http.DefaultTransport.
func New(cfg Config) (*TemplateClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("target url is required")
	}

	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.InsecureSkipVerify {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		logger.WithComponent("client").Warn("TLS certificate verification is disabled")
	}

	return NewWithHTTPClient(cfg.URL, &http.Client{Transport: tr, Timeout: cfg.Timeout}), nil
}

// NewWithHTTPClient wraps an existing http.Client; used by tests.
func NewWithHTTPClient(url string, hc *http.Client) *TemplateClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &TemplateClient{url: url, http: hc}
}

func (c *TemplateClient) URL() string {
	return c.url
}

// Publish sends one POST. Any status code is a successful Outcome; only transport
// failures are errors.
func (c *TemplateClient) Publish(ctx context.Context, record repository.TemplateRecord) (Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(record.Bytes()))
	if err != nil {
		return Outcome{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", HeaderAccept)
	req.Header.Set("Content-Type", HeaderContentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("post %s: %w", c.url, err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.WithComponent("client").Debugf("POST %s -> %s", c.url, resp.Status)
	return Outcome{StatusCode: resp.StatusCode, Reason: reasonPhrase(resp)}, nil
}

// reasonPhrase extracts "Not Found" from "404 Not Found", falling back to the
// standard text when the server sent a bare code.
func reasonPhrase(resp *http.Response) string {
	status := strings.TrimSpace(resp.Status)
	code := strconv.Itoa(resp.StatusCode)
	if reason := strings.TrimSpace(strings.TrimPrefix(status, code)); reason != "" && reason != status {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}
