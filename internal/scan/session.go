package scan

import (
	"sync/atomic"
	"time"

	"github.com/songzhibin97/port_probe/diagnostic"
)

// Progress is a snapshot of a running scan.
type Progress struct {
	Scanned int
	Open    int
	Total   int
}

// Percent is the rounded share of ports processed. An empty scan is complete.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 100
	}
	return (p.Scanned*100 + p.Total/2) / p.Total
}

// Session is the state of one scan invocation. Only the scheduler's reporting
// goroutine mutates it; Progress and Done may be read from anywhere.
type Session struct {
	Host        string
	Ports       []int
	Concurrency int
	Timeout     time.Duration
	GrabBanners bool

	scanned atomic.Int64
	open    atomic.Int64

	start time.Time
	done  chan struct{}

	// guarded by done: written before done is closed
	elapsed     time.Duration
	canceled    bool
	diagnostics *diagnostic.Diagnostics
}

func newSession(host string, ports []int, config *Config) *Session {
	s := &Session{
		Host:        host,
		Ports:       ports,
		Concurrency: config.Concurrency,
		Timeout:     config.Timeout,
		GrabBanners: config.GrabBanners,
		start:       time.Now(),
		done:        make(chan struct{}),
		diagnostics: diagnostic.NewDiagnostics(),
	}
	for _, notice := range config.Notices {
		s.diagnostics.AddDiagnostic(notice)
	}
	return s
}

func (s *Session) record(r ProbeResult) {
	s.scanned.Add(1)
	if r.Status == StatusOpen {
		s.open.Add(1)
	}
}

func (s *Session) cancel(err error) {
	s.canceled = true
	s.diagnostics.AddInfo("scan stopped after %d of %d ports", s.scanned.Load(), len(s.Ports))
	s.diagnostics.AddError(err)
}

func (s *Session) finish() {
	s.elapsed = time.Since(s.start)
	close(s.done)
}

func (s *Session) Progress() Progress {
	return Progress{
		Scanned: int(s.scanned.Load()),
		Open:    int(s.open.Load()),
		Total:   len(s.Ports),
	}
}

// Done is closed once the last batch has been reported.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Summary blocks until the scan is done. Total counts the ports actually
// processed, which is less than len(Ports) only for a cancelled scan.
func (s *Session) Summary() Summary {
	<-s.done
	scanned := int(s.scanned.Load())
	open := int(s.open.Load())
	return Summary{
		Open:     open,
		Closed:   scanned - open,
		Total:    scanned,
		Elapsed:  s.elapsed,
		Canceled: s.canceled,
	}
}

// Diagnostics blocks until the scan is done and returns scan-level notices.
func (s *Session) Diagnostics() *diagnostic.Diagnostics {
	<-s.done
	return s.diagnostics
}
