package service

import (
	"github.com/google/gopacket/layers"
	"github.com/songzhibin97/go-baseutils/base/options"
)

// Unknown is returned for ports with no known service.
const Unknown = "Unknown"

var wellKnown = map[int]string{
	20:    "FTP (Data)",
	21:    "FTP (Control)",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	80:    "HTTP",
	110:   "POP3",
	119:   "NNTP",
	123:   "NTP",
	143:   "IMAP",
	161:   "SNMP",
	194:   "IRC",
	443:   "HTTPS",
	445:   "SMB",
	465:   "SMTPS",
	514:   "Syslog",
	587:   "SMTP (Submission)",
	993:   "IMAPS",
	995:   "POP3S",
	1080:  "SOCKS Proxy",
	1433:  "MSSQL",
	1521:  "Oracle DB",
	3306:  "MySQL",
	3389:  "RDP",
	5432:  "PostgreSQL",
	5900:  "VNC",
	6379:  "Redis",
	8080:  "HTTP Proxy",
	8443:  "HTTPS Alt",
	9090:  "Prometheus",
	27017: "MongoDB",
}

// Resolver maps a port number to a service name. The zero value only consults
// the well-known table.
type Resolver struct {
	iana bool
}

// WithIANA makes the resolver fall back to the IANA service registry when the
// well-known table has no entry.
func WithIANA(enable bool) options.Option[*Resolver] {
	return func(r *Resolver) {
		r.iana = enable
	}
}

func NewResolver(options ...options.Option[*Resolver]) *Resolver {
	r := &Resolver{}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *Resolver) Resolve(port int) string {
	if name, ok := wellKnown[port]; ok {
		return name
	}
	if r != nil && r.iana && port > 0 && port <= 0xffff {
		if name, ok := layers.TCPPortNames[layers.TCPPort(port)]; ok && name != "" {
			return name
		}
	}
	return Unknown
}
