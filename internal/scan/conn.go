package scan

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/songzhibin97/go-baseutils/base/options"

	"github.com/songzhibin97/port_probe/diagnostic"
)

var _ Prober = (*ConnProber)(nil)

// ConnProber classifies a port by whether a full TCP connect completes within
// the timeout. No data is exchanged and the connection is closed at once.
type ConnProber struct {
	config *Config
}

func (s *ConnProber) Probe(ctx context.Context, host string, port int) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	conn, err := s.config.dialer().DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	cost := time.Since(start)
	if err != nil {
		d := diagnostic.NewCauseDiagnostic(diagnostic.DiagnosisLevelTrace, err)
		s.config.logger().Debug("probe closed",
			slog.String("host", host), slog.Int("port", port),
			slog.String("cause", string(d.Cause())), slog.Duration("cost", cost))
		return ProbeResult{
			Port:       port,
			Status:     StatusClosed,
			Cost:       cost,
			Diagnostic: d,
		}
	}
	_ = conn.Close()

	s.config.logger().Debug("probe open", slog.String("host", host), slog.Int("port", port), slog.Duration("cost", cost))
	return ProbeResult{
		Port:   port,
		Status: StatusOpen,
		Cost:   cost,
	}
}

func NewConnProber(options ...options.Option[*Config]) *ConnProber {
	return &ConnProber{
		config: newConfig(options),
	}
}
