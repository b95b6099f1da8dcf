package target

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/songzhibin97/go-baseutils/app/bcache"
	"github.com/songzhibin97/go-baseutils/base/options"

	"github.com/songzhibin97/port_probe/diagnostic"
	"github.com/songzhibin97/port_probe/retry"
)

var ErrNoAddress = errors.New("host resolved to no usable address")

// Lookuper is satisfied by *net.Resolver.
type Lookuper interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

type Config struct {
	TTL       time.Duration
	Retry     int
	RetryUnit time.Duration
	Lookuper  Lookuper
}

func NewDefaultConfig() *Config {
	return &Config{
		TTL:       5 * time.Minute,
		Retry:     3,
		RetryUnit: time.Second,
		Lookuper:  net.DefaultResolver,
	}
}

func WithTTL(ttl time.Duration) options.Option[*Config] {
	return func(c *Config) {
		c.TTL = ttl
	}
}

func WithRetry(count int, unit time.Duration) options.Option[*Config] {
	return func(c *Config) {
		c.Retry = count
		c.RetryUnit = unit
	}
}

func WithLookuper(l Lookuper) options.Option[*Config] {
	return func(c *Config) {
		c.Lookuper = l
	}
}

// Resolver turns a scan target into the address every probe dials, so one
// scan never resolves the same name more than once.
type Resolver struct {
	config *Config
	cache  *bcache.BCache[string, entry]
}

type entry struct {
	addr   string
	notice *diagnostic.Diagnostic
}

func NewResolver(options ...options.Option[*Config]) *Resolver {
	config := NewDefaultConfig()
	for _, option := range options {
		option(config)
	}
	return &Resolver{
		config: config,
		cache: bcache.New[string, entry](strings.Compare,
			bcache.SetDefaultExpire[string, entry](config.TTL),
			bcache.SetCapture[string, entry](nil),
		),
	}
}

// Resolve returns host unchanged when it is an IP literal. Names are looked up
// with retries; IPv4 answers are preferred. The notice is non-nil when the
// answer deserves a mention in the scan report, such as an IPv6 fallback.
func (r *Resolver) Resolve(ctx context.Context, host string) (string, *diagnostic.Diagnostic, error) {
	host = strings.Trim(strings.TrimSpace(host), "[]")
	if host == "" {
		return "", nil, fmt.Errorf("empty host: %w", ErrNoAddress)
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil, nil
	}
	if e, ok := r.cache.Get(host); ok {
		return e.addr, e.notice, nil
	}

	var addrs []string
	err := retry.Do(ctx, "resolve "+host, func() error {
		var err error
		addrs, err = r.config.Lookuper.LookupHost(ctx, host)
		return err
	}, permanent, retry.Policy{Count: r.config.Retry, Unit: r.config.RetryUnit})
	if err != nil {
		return "", nil, fmt.Errorf("resolve %s: %w", host, err)
	}

	addr, fallback, err := pick(addrs)
	if err != nil {
		return "", nil, fmt.Errorf("resolve %s: %w", host, err)
	}
	e := entry{addr: addr}
	if fallback {
		e.notice = diagnostic.NewWarnDiagnostic(fmt.Sprintf("%s has no IPv4 address, scanning %s", host, addr))
	}
	slog.Debug("target resolved", slog.String("host", host), slog.String("addr", addr), slog.Int("answers", len(addrs)), slog.Bool("ipv6_fallback", fallback))
	r.cache.SetDefault(host, e)
	return e.addr, e.notice, nil
}

// permanent reports lookup failures that retrying cannot fix.
func permanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

// pick returns the first IPv4 answer, else the first IPv6 one with fallback set.
func pick(addrs []string) (addr string, fallback bool, err error) {
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			return ip.String(), false, nil
		}
		if addr == "" {
			addr = ip.String()
		}
	}
	if addr == "" {
		return "", false, ErrNoAddress
	}
	return addr, true, nil
}
