package scan

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/songzhibin97/go-baseutils/base/options"

	"github.com/songzhibin97/port_probe/diagnostic"
)

// Dialer opens the TCP connections probes and banner grabs run on.
// *net.Dialer and golang.org/x/net/proxy context dialers satisfy it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Config struct {
	// Timeout bounds each connection attempt.
	Timeout time.Duration
	// BannerTimeout bounds a banner grab, connect and read together.
	// Zero means Timeout.
	BannerTimeout time.Duration
	// Concurrency is the batch size and so the ceiling on in-flight probes.
	Concurrency   int
	IncludeClosed bool
	GrabBanners   bool
	Trigger       []byte
	BannerBuffer  int

	Dialer   Dialer
	Prober   Prober
	Grabber  Grabber
	Services ServiceResolver
	Logger   *slog.Logger

	// Notices are copied into every session's diagnostics before it starts.
	Notices []*diagnostic.Diagnostic
}

func NewDefaultConfig() *Config {
	return &Config{
		Timeout:      defaultTimeout,
		Concurrency:  defaultConcurrency,
		Trigger:      []byte(trigger),
		BannerBuffer: defaultBannerBuffer,
	}
}

// Validate checks the constraints the scheduler assumes callers enforce.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, c.Concurrency)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidTimeout, c.Timeout)
	}
	if c.BannerTimeout < 0 {
		return fmt.Errorf("%w: banner timeout %s", ErrInvalidTimeout, c.BannerTimeout)
	}
	return nil
}

func (c *Config) bannerTimeout() time.Duration {
	if c.BannerTimeout > 0 {
		return c.BannerTimeout
	}
	return c.Timeout
}

func (c *Config) dialer() Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return &net.Dialer{}
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func newConfig(opts []options.Option[*Config]) *Config {
	config := NewDefaultConfig()
	for _, option := range opts {
		option(config)
	}
	return config
}

func WithTimeout(timeout time.Duration) options.Option[*Config] {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

func WithBannerTimeout(timeout time.Duration) options.Option[*Config] {
	return func(c *Config) {
		c.BannerTimeout = timeout
	}
}

func WithConcurrency(n int) options.Option[*Config] {
	return func(c *Config) {
		c.Concurrency = n
	}
}

func WithIncludeClosed(include bool) options.Option[*Config] {
	return func(c *Config) {
		c.IncludeClosed = include
	}
}

func WithGrabBanners(grab bool) options.Option[*Config] {
	return func(c *Config) {
		c.GrabBanners = grab
	}
}

// WithTrigger replaces the bytes sent after a banner connection opens.
// An empty trigger sends nothing.
func WithTrigger(b []byte) options.Option[*Config] {
	return func(c *Config) {
		c.Trigger = b
	}
}

func WithBannerBuffer(size int) options.Option[*Config] {
	return func(c *Config) {
		c.BannerBuffer = size
	}
}

func WithDialer(d Dialer) options.Option[*Config] {
	return func(c *Config) {
		c.Dialer = d
	}
}

func WithProber(p Prober) options.Option[*Config] {
	return func(c *Config) {
		c.Prober = p
	}
}

func WithGrabber(g Grabber) options.Option[*Config] {
	return func(c *Config) {
		c.Grabber = g
	}
}

func WithServiceResolver(r ServiceResolver) options.Option[*Config] {
	return func(c *Config) {
		c.Services = r
	}
}

func WithLogger(l *slog.Logger) options.Option[*Config] {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithNotice attaches a scan-level notice, such as a resolution fallback, to
// every session the scheduler starts. Nil notices are ignored.
func WithNotice(d *diagnostic.Diagnostic) options.Option[*Config] {
	return func(c *Config) {
		if d != nil {
			c.Notices = append(c.Notices, d)
		}
	}
}
