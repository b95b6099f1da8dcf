package diagnostic

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Cause names why a connection attempt did not establish. Every non-empty
// cause still reports as a closed port; the cause is informational only.
type Cause string

const (
	CauseNone        Cause = ""
	CauseRefused     Cause = "refused"
	CauseTimeout     Cause = "timeout"
	CauseUnreachable Cause = "unreachable"
	CauseReset       Cause = "reset"
	CauseDNS         Cause = "dns"
	CauseCanceled    Cause = "canceled"
	CauseOther       Cause = "other"
)

// Classify maps a dial or read error onto a Cause.
func Classify(err error) Cause {
	if err == nil {
		return CauseNone
	}

	if errors.Is(err, context.Canceled) {
		return CauseCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return CauseTimeout
		}
		return CauseDNS
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return CauseRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return CauseReset
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return CauseUnreachable
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CauseTimeout
	}
	return CauseOther
}
