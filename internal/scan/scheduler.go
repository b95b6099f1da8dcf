package scan

import (
	"context"
	"log/slog"

	"github.com/songzhibin97/go-baseutils/base/options"
	"golang.org/x/sync/errgroup"

	"github.com/songzhibin97/port_probe/internal/service"
)

// Scheduler probes a host's ports in fixed-size batches. Every probe of a
// batch, and every banner grab its open ports trigger, settles before the next
// batch dials anything. Results are reported in input order.
type Scheduler struct {
	config    *Config
	requested int
	prober    Prober
	grabber   Grabber
	services  ServiceResolver
}

func NewScheduler(options ...options.Option[*Config]) *Scheduler {
	config := newConfig(options)
	requested := config.Concurrency
	if config.Concurrency < 1 {
		config.logger().Warn("concurrency below 1, using 1", slog.Int("concurrency", config.Concurrency))
		config.Concurrency = 1
	}

	s := &Scheduler{
		config:    config,
		requested: requested,
		prober:    config.Prober,
		grabber:   config.Grabber,
		services:  config.Services,
	}
	if s.prober == nil {
		s.prober = &ConnProber{config: config}
	}
	if s.grabber == nil {
		s.grabber = &BannerCollector{config: config}
	}
	if s.services == nil {
		s.services = service.NewResolver()
	}
	return s
}

// Run scans ports and returns the reported results with the final summary.
func (s *Scheduler) Run(ctx context.Context, host string, ports []int) ([]AnnotatedResult, Summary) {
	ch, session := s.Stream(ctx, host, ports)
	results := make([]AnnotatedResult, 0)
	for r := range ch {
		results = append(results, r)
	}
	return results, session.Summary()
}

// Stream starts a scan and emits each reported result as soon as its batch
// settles. The channel must be drained; it is closed after the session is done.
//
// Cancelling ctx stops the scan at the next batch boundary. The batch in flight
// still runs to completion, bounded by the probe and banner timeouts.
func (s *Scheduler) Stream(ctx context.Context, host string, ports []int) (<-chan AnnotatedResult, *Session) {
	session := newSession(host, ports, s.config)
	if s.requested != s.config.Concurrency {
		session.diagnostics.AddWarn("concurrency %d below 1, using %d", s.requested, s.config.Concurrency)
	}
	out := make(chan AnnotatedResult, s.config.Concurrency)
	go s.run(ctx, session, out)
	return out, session
}

func (s *Scheduler) run(ctx context.Context, session *Session, out chan<- AnnotatedResult) {
	defer close(out)
	defer session.finish()

	logger := s.config.logger().With(slog.String("host", session.Host))
	batches := Batches(session.Ports, s.config.Concurrency)
	logger.Info("scan started",
		slog.Int("ports", len(session.Ports)),
		slog.Int("batches", len(batches)),
		slog.Int("concurrency", s.config.Concurrency),
		slog.Duration("timeout", s.config.Timeout),
		slog.Bool("banners", s.config.GrabBanners))

	work := context.WithoutCancel(ctx)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			session.cancel(err)
			logger.Info("scan canceled", slog.Int("batch", i), slog.Int("remaining", len(batches)-i))
			return
		}

		results := s.probeBatch(work, session.Host, batch)
		for _, r := range results {
			annotated := s.annotate(work, session.Host, r)
			session.record(r)
			if r.Status == StatusOpen || s.config.IncludeClosed {
				out <- annotated
			}
		}
		logger.Debug("batch settled", slog.Int("batch", i), slog.Int("size", len(batch)))
	}

	p := session.Progress()
	logger.Info("scan finished", slog.Int("scanned", p.Scanned), slog.Int("open", p.Open))
}

// probeBatch runs one probe per port concurrently and returns the outcomes in
// batch order. Each goroutine writes only its own slot.
func (s *Scheduler) probeBatch(ctx context.Context, host string, batch []int) []ProbeResult {
	results := make([]ProbeResult, len(batch))
	var g errgroup.Group
	for i, port := range batch {
		i, port := i, port
		g.Go(func() error {
			r := s.prober.Probe(ctx, host, port)
			r.Port = port
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scheduler) annotate(ctx context.Context, host string, r ProbeResult) AnnotatedResult {
	annotated := AnnotatedResult{
		Port:       r.Port,
		Status:     r.Status,
		Service:    s.services.Resolve(r.Port),
		Cost:       r.Cost,
		Diagnostic: r.Diagnostic,
	}
	if r.Status == StatusOpen && s.config.GrabBanners {
		annotated.Banner = s.grabber.Grab(ctx, host, r.Port).Banner
	}
	return annotated
}

// Batches splits ports into consecutive groups of at most size, keeping order.
func Batches(ports []int, size int) [][]int {
	if size < 1 {
		size = 1
	}
	batches := make([][]int, 0, (len(ports)+size-1)/size)
	for start := 0; start < len(ports); start += size {
		end := min(start+size, len(ports))
		batches = append(batches, ports[start:end:end])
	}
	return batches
}
