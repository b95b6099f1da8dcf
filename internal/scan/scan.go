package scan

import "context"

// Prober decides whether a single TCP port accepts connections.
type Prober interface {
	Probe(ctx context.Context, host string, port int) ProbeResult
}

// Grabber captures the first bytes a confirmed-open port sends.
type Grabber interface {
	Grab(ctx context.Context, host string, port int) BannerResult
}

// ServiceResolver names the service usually found on a port.
type ServiceResolver interface {
	Resolve(port int) string
}
