// Package portspec parses and validates the ports a scan is asked to probe.
//
// Supported forms:
//   - single: "22"
//   - range: "1-1024"
//   - list: "80,443,8080" (order and duplicates are kept)
//   - mixed: "22,8000-8002"
package portspec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// DefaultRange is scanned when no ports are given.
const DefaultRange = "1-1024"

var (
	ErrEmpty         = errors.New("empty port spec")
	ErrOutOfRange    = errors.New("port numbers must be in 1..65535")
	ErrReversedRange = errors.New("range start greater than end")
	ErrSyntax        = errors.New("invalid port token")
)

var commonPorts = []int{
	21, 22, 23, 25, 53, 80, 110, 119, 123, 143, 161, 194,
	443, 445, 465, 587, 993, 995, 1080, 1433, 1521, 3306,
	3389, 5432, 5900, 6379, 8080, 8443, 9090, 27017,
}

// CommonPorts returns a fresh copy of the common-ports list.
func CommonPorts() []int {
	out := make([]int, len(commonPorts))
	copy(out, commonPorts)
	return out
}

// Validate reports whether p is a usable port.
func Validate(p int) error {
	if p < MinPort || p > MaxPort {
		return fmt.Errorf("%w: %d", ErrOutOfRange, p)
	}
	return nil
}

// Range expands [start, end] inclusive.
func Range(start, end int) ([]int, error) {
	if err := Validate(start); err != nil {
		return nil, err
	}
	if err := Validate(end); err != nil {
		return nil, err
	}
	if start > end {
		return nil, fmt.Errorf("%w: %d-%d", ErrReversedRange, start, end)
	}
	out := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		out = append(out, p)
	}
	return out, nil
}

// Parse expands spec into an ordered port sequence.
func Parse(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, ErrEmpty
	}

	var out []int
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("%w: empty token in %q", ErrSyntax, spec)
		}

		if lo, hi, ok := strings.Cut(token, "-"); ok {
			start, err := atoi(lo)
			if err != nil {
				return nil, err
			}
			end, err := atoi(hi)
			if err != nil {
				return nil, err
			}
			ports, err := Range(start, end)
			if err != nil {
				return nil, err
			}
			out = append(out, ports...)
			continue
		}

		p, err := atoi(token)
		if err != nil {
			return nil, err
		}
		if err := Validate(p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func atoi(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	return v, nil
}

// Describe renders ports compactly for headers: a contiguous ascending run
// becomes "start - end", anything else is listed.
func Describe(ports []int) string {
	switch len(ports) {
	case 0:
		return "none"
	case 1:
		return strconv.Itoa(ports[0])
	}
	contiguous := true
	for i := 1; i < len(ports); i++ {
		if ports[i] != ports[i-1]+1 {
			contiguous = false
			break
		}
	}
	if contiguous {
		return fmt.Sprintf("%d - %d", ports[0], ports[len(ports)-1])
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}
