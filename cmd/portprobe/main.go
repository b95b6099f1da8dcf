package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/songzhibin97/go-baseutils/base/options"

	"github.com/songzhibin97/port_probe/diagnostic"
	"github.com/songzhibin97/port_probe/internal/portspec"
	"github.com/songzhibin97/port_probe/internal/report"
	"github.com/songzhibin97/port_probe/internal/scan"
	"github.com/songzhibin97/port_probe/internal/service"
	"github.com/songzhibin97/port_probe/internal/target"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

const proxyEnv = "PORTPROBE_PROXY"

type cliConfig struct {
	host          string
	ports         []int
	timeout       time.Duration
	bannerTimeout time.Duration
	concurrency   int
	showClosed    bool
	banner        bool
	iana          bool
	proxy         string
	noColor       bool
	verbose       bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := interruptContext(context.Background())
	defer stop()

	// An unresolvable host is still scanned; every probe then reports closed.
	addr, notice, err := target.NewResolver().Resolve(ctx, cfg.host)
	unresolved := err != nil
	if unresolved {
		logger.Warn("failed to resolve target, scanning anyway", slog.String("host", cfg.host), slog.Any("error", err))
		addr = cfg.host
		notice = diagnostic.NewCauseDiagnostic(diagnostic.DiagnosisLevelError,
			fmt.Errorf("could not resolve %s, every port will report closed: %w", cfg.host, err))
	}

	opts := []options.Option[*scan.Config]{
		scan.WithTimeout(cfg.timeout),
		scan.WithBannerTimeout(cfg.bannerTimeout),
		scan.WithConcurrency(cfg.concurrency),
		scan.WithIncludeClosed(cfg.showClosed),
		scan.WithGrabBanners(cfg.banner),
		scan.WithServiceResolver(service.NewResolver(service.WithIANA(cfg.iana))),
		scan.WithLogger(logger),
		scan.WithNotice(notice),
	}
	if cfg.proxy != "" {
		dialer, err := scan.NewSOCKS5Dialer(cfg.proxy, nil)
		if err != nil {
			fmt.Fprintf(stderr, "invalid proxy: %v\n", err)
			return exitUsage
		}
		opts = append(opts, scan.WithDialer(dialer))
	}

	var reportOpts []options.Option[*report.Reporter]
	if cfg.noColor {
		reportOpts = append(reportOpts, report.WithColor(false))
	}
	rep := report.New(stdout, reportOpts...)
	rep.Header(cfg.host, cfg.ports)

	ch, session := scan.NewScheduler(opts...).Stream(ctx, addr, cfg.ports)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for done := false; !done; {
		select {
		case r, ok := <-ch:
			if !ok {
				done = true
				continue
			}
			rep.Result(r)
			rep.Progress(session.Progress())
		case <-ticker.C:
			rep.Progress(session.Progress())
		}
	}

	summary := session.Summary()
	rep.Notices(session.Diagnostics())
	rep.Summary(summary)
	switch {
	case summary.Canceled:
		return exitInterrupted
	case unresolved:
		return exitFailure
	}
	return exitOK
}

// interruptContext is cancelled by the first SIGINT or SIGTERM. After that the
// default handling is restored, so a second Ctrl-C kills a slow drain.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	context.AfterFunc(ctx, stop)
	return ctx, stop
}

func parseArgs(args []string, stderr io.Writer) (*cliConfig, error) {
	cfg := &cliConfig{}

	// the host may come first, before any flag
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cfg.host, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("portprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: portprobe <host> [options]")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Examples:")
		fmt.Fprintln(stderr, "  portprobe scanme.nmap.org")
		fmt.Fprintln(stderr, "  portprobe 192.168.1.1 -p 1-65535")
		fmt.Fprintln(stderr, "  portprobe localhost -p 80,443,3000,8080")
		fmt.Fprintln(stderr, "  portprobe example.com -common -b")
		fmt.Fprintln(stderr, "  portprobe 10.0.0.1 -p 1-1000 -concurrency 200 -t 3000")
	}

	var (
		portsSpec       string
		common          bool
		timeoutMS       int
		bannerTimeoutMS int
	)
	fs.StringVar(&portsSpec, "p", "", "ports: 80 | 1-1024 | 80,443,8080 (default "+portspec.DefaultRange+")")
	fs.StringVar(&portsSpec, "ports", "", "alias of -p")
	fs.BoolVar(&common, "c", false, "scan common ports only")
	fs.BoolVar(&common, "common", false, "alias of -c")
	fs.IntVar(&timeoutMS, "t", 2000, "connection timeout in ms")
	fs.IntVar(&timeoutMS, "timeout", 2000, "alias of -t")
	fs.IntVar(&bannerTimeoutMS, "banner-timeout", 0, "banner read timeout in ms (default: connection timeout)")
	fs.IntVar(&cfg.concurrency, "concurrency", 100, "max concurrent connections")
	fs.BoolVar(&cfg.showClosed, "show-closed", false, "show closed ports in output")
	fs.BoolVar(&cfg.banner, "b", false, "attempt banner grabbing on open ports")
	fs.BoolVar(&cfg.banner, "banner", false, "alias of -b")
	fs.BoolVar(&cfg.iana, "iana", false, "fall back to IANA service names for unlisted ports")
	fs.StringVar(&cfg.proxy, "proxy", os.Getenv(proxyEnv), "SOCKS5 proxy host:port (env "+proxyEnv+")")
	fs.BoolVar(&cfg.noColor, "no-color", false, "disable colored output")
	fs.BoolVar(&cfg.verbose, "v", false, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if cfg.host == "" && len(rest) > 0 {
		cfg.host, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	}
	if cfg.host == "" {
		fs.Usage()
		return nil, errors.New("target host is required")
	}

	switch {
	case common && portsSpec != "":
		return nil, errors.New("-p and -common are mutually exclusive")
	case common:
		cfg.ports = portspec.CommonPorts()
	default:
		if portsSpec == "" {
			portsSpec = portspec.DefaultRange
		}
		ports, err := portspec.Parse(portsSpec)
		if err != nil {
			return nil, fmt.Errorf("invalid ports: %w", err)
		}
		cfg.ports = ports
	}

	cfg.timeout = time.Duration(timeoutMS) * time.Millisecond
	cfg.bannerTimeout = time.Duration(bannerTimeoutMS) * time.Millisecond

	engine := scan.NewDefaultConfig()
	engine.Timeout = cfg.timeout
	engine.BannerTimeout = cfg.bannerTimeout
	engine.Concurrency = cfg.concurrency
	if err := engine.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
