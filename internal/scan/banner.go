package scan

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/songzhibin97/go-baseutils/base/options"

	"github.com/songzhibin97/port_probe/diagnostic"
)

var _ Grabber = (*BannerCollector)(nil)

// BannerCollector opens its own connection to an open port, sends the trigger
// and keeps whatever the first read returns.
type BannerCollector struct {
	config *Config
}

func (b *BannerCollector) Grab(ctx context.Context, host string, port int) BannerResult {
	ctx, cancel := context.WithTimeout(ctx, b.config.bannerTimeout())
	defer cancel()

	absent := BannerResult{Port: port}
	logger := b.config.logger().With(slog.String("host", host), slog.Int("port", port))

	conn, err := b.config.dialer().DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		logger.Debug("banner dial failed", slog.String("cause", string(diagnostic.Classify(err))))
		return absent
	}
	defer conn.Close()

	// The deadline covers the write and the read; cancelling ctx expires it early.
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return absent
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if len(b.config.Trigger) > 0 {
		if _, err := conn.Write(b.config.Trigger); err != nil {
			logger.Debug("banner trigger failed", slog.String("cause", string(diagnostic.Classify(err))))
			return absent
		}
	}

	size := b.config.BannerBuffer
	if size <= 0 {
		size = defaultBannerBuffer
	}
	buf := make([]byte, size)
	n, err := conn.Read(buf)
	banner := bytes.TrimSpace(buf[:n])
	if len(banner) == 0 {
		if err != nil {
			logger.Debug("banner read failed", slog.String("cause", string(diagnostic.Classify(err))))
		}
		return absent
	}

	logger.Debug("banner captured", slog.Int("bytes", len(banner)))
	return BannerResult{Port: port, Banner: bytes.Clone(banner)}
}

func NewBannerCollector(options ...options.Option[*Config]) *BannerCollector {
	return &BannerCollector{
		config: newConfig(options),
	}
}
