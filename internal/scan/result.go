package scan

import (
	"time"

	"github.com/songzhibin97/port_probe/diagnostic"
)

type Status int

const (
	StatusClosed Status = iota
	StatusOpen
)

func (s Status) String() string {
	if s == StatusOpen {
		return "open"
	}
	return "closed"
}

// ProbeResult is the single outcome of one connection attempt. Diagnostic is
// set only for closed ports and records why the attempt failed.
type ProbeResult struct {
	Port       int                    `json:"port"`
	Status     Status                 `json:"status"`
	Cost       time.Duration          `json:"cost"`
	Diagnostic *diagnostic.Diagnostic `json:"-"`
}

// BannerResult holds the trimmed first chunk of bytes a port sent. A nil
// Banner means no banner was captured.
type BannerResult struct {
	Port   int    `json:"port"`
	Banner []byte `json:"banner,omitempty"`
}

func (b BannerResult) Absent() bool {
	return len(b.Banner) == 0
}

// AnnotatedResult is what the scheduler emits for every reported port.
type AnnotatedResult struct {
	Port       int                    `json:"port"`
	Status     Status                 `json:"status"`
	Service    string                 `json:"service"`
	Banner     []byte                 `json:"banner,omitempty"`
	Cost       time.Duration          `json:"cost"`
	Diagnostic *diagnostic.Diagnostic `json:"-"`
}

func (r AnnotatedResult) HasBanner() bool {
	return len(r.Banner) > 0
}

// Cause is the diagnostic cause of a closed result, or CauseNone.
func (r AnnotatedResult) Cause() diagnostic.Cause {
	return r.Diagnostic.Cause()
}

type Summary struct {
	Open     int           `json:"open"`
	Closed   int           `json:"closed"`
	Total    int           `json:"total"`
	Elapsed  time.Duration `json:"elapsed"`
	Canceled bool          `json:"canceled"`
}
