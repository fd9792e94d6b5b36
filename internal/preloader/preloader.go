package preloader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bassista/template_preload/internal/client"
	"github.com/bassista/template_preload/internal/logger"
	"github.com/bassista/template_preload/internal/repository"
)

// DefaultDelay is the pause before every request.
const DefaultDelay = 8 * time.Second

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the SleepFunc used outside tests.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Report summarises one pass over a batch.
type Report struct {
	RunID    string
	Total    int
	Outcomes []client.Outcome
}

// Submitted is the number of requests that got a response.
func (r Report) Submitted() int {
	return len(r.Outcomes)
}

// Preloader submits a batch one record at a time, in order, pausing before each request.
type Preloader struct {
	publisher client.Publisher
	delay     time.Duration
	sleep     SleepFunc
}

type Option func(*Preloader)

func WithDelay(d time.Duration) Option {
	return func(p *Preloader) { p.delay = d }
}

func WithSleepFunc(fn SleepFunc) Option {
	return func(p *Preloader) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

func New(publisher client.Publisher, opts ...Option) (*Preloader, error) {
	if publisher == nil {
		return nil, errors.New("publisher is nil")
	}
	p := &Preloader{
		publisher: publisher,
		delay:     DefaultDelay,
		sleep:     Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.delay < 0 {
		return nil, fmt.Errorf("delay must not be negative, got %v", p.delay)
	}
	return p, nil
}

func (p *Preloader) Delay() time.Duration {
	return p.delay
}

// Run walks the batch once. The first failure stops the run: later records are
// not sent and nothing is retried. The returned report holds the outcomes
// gathered before the failure.
func (p *Preloader) Run(ctx context.Context, batch *repository.TemplateBatch) (Report, error) {
	records := batch.Records()
	report := Report{
		RunID:    uuid.NewString(),
		Total:    len(records),
		Outcomes: make([]client.Outcome, 0, len(records)),
	}
	log := logger.WithComponent("preloader").WithField("run", report.RunID)

	log.Infof("preloading %d template(s)", report.Total)

	for i, record := range records {
		entry := log.WithField("template", fmt.Sprintf("%d/%d", i+1, report.Total))

		entry.Infof("record type: %s", record.Kind())
		entry.Infof("waiting %v before sending request", p.delay)
		if err := p.sleep(ctx, p.delay); err != nil {
			return report, fmt.Errorf("template %d of %d: %w", i+1, report.Total, err)
		}

		entry.Info("sending rest request")
		outcome, err := p.publisher.Publish(ctx, record)
		if err != nil {
			return report, fmt.Errorf("template %d of %d: %w", i+1, report.Total, err)
		}
		report.Outcomes = append(report.Outcomes, outcome)
		entry.Infof("response is: %s", outcome.Reason)
	}

	log.Infof("preload finished: %d of %d template(s) submitted", report.Submitted(), report.Total)
	return report, nil
}
