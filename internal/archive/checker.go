package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/archive-gate/internal/metrics"
)

const (
	// DefaultTimeout bounds each probe request when CheckAll is given no timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent identifies the checker to archive operators.
	DefaultUserAgent = "archive-gate/0.1.0"
)

var (
	// ErrInvalidTimeout is returned for a negative or otherwise unusable timeout.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrEmptyUserAgent is returned when the client identifier is blank.
	ErrEmptyUserAgent = errors.New("user agent must not be empty")
)

// Checker probes sets of archives concurrently and classifies the results.
// All probes of all calls share one HTTP client and its connection pool.
type Checker struct {
	timeout   time.Duration
	userAgent string
	transport http.RoundTripper
	logger    *slog.Logger
	events    chan<- metrics.MetricEvent
	prober    *Prober
}

// Option is a functional option for configuring a Checker.
type Option func(*Checker) error

// WithTimeout sets the per-request timeout used when CheckAll receives zero.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) error {
		if d <= 0 {
			return fmt.Errorf("%w, got %v", ErrInvalidTimeout, d)
		}
		c.timeout = d
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with every probe.
func WithUserAgent(ua string) Option {
	return func(c *Checker) error {
		if ua == "" {
			return ErrEmptyUserAgent
		}
		c.userAgent = ua
		return nil
	}
}

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Checker) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.transport = rt
		return nil
	}
}

// WithLogger sets the logger used by the checker and its probes.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithEvents makes every probe report an EventProbeCompleted to ch.
func WithEvents(ch chan<- metrics.MetricEvent) Option {
	return func(c *Checker) error {
		c.events = ch
		return nil
	}
}

// NewChecker builds a Checker. It fails only on invalid options.
func NewChecker(opts ...Option) (*Checker, error) {
	c := &Checker{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		transport: http.DefaultTransport.(*http.Transport).Clone(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
	}

	c.prober = &Prober{
		client:    &http.Client{Transport: c.transport},
		userAgent: c.userAgent,
		logger:    c.logger,
		events:    c.events,
	}

	return c, nil
}

// CheckAll probes every archive concurrently and waits for all of them.
//
// A zero timeout selects the Checker's default; a negative timeout fails
// with ErrInvalidTimeout before any request is sent. An empty archive list
// returns an empty report without network access. Per-archive failures are
// recorded in the report and never returned as an error.
func (c *Checker) CheckAll(ctx context.Context, archives []string, timeout time.Duration) (HealthReport, error) {
	if len(archives) == 0 {
		c.logger.Debug("No archive URLs to check, skipping health check")
		return HealthReport{}, nil
	}

	if timeout == 0 {
		timeout = c.timeout
	}
	if timeout < 0 {
		return HealthReport{}, fmt.Errorf("archive: %w, got %v", ErrInvalidTimeout, timeout)
	}

	outcomes := make([]Outcome, len(archives))

	// Probes never return errors, so the group is a plain join barrier and
	// one failing archive cannot cancel its siblings.
	var g errgroup.Group
	for i, archive := range archives {
		g.Go(func() error {
			outcomes[i] = c.prober.Probe(ctx, archive, timeout)
			return nil
		})
	}
	_ = g.Wait() // always nil: every goroutine returns nil

	report := buildReport(archives, outcomes)

	c.logger.Debug("Archive health check complete", slog.String("summary", report.Summary()))

	return report, nil
}
