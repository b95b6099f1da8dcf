package scan

import (
	"fmt"

	"golang.org/x/net/proxy"
)

// NewSOCKS5Dialer routes probes through the SOCKS5 proxy at address. A port is
// then open when the proxy's CONNECT to it succeeds.
func NewSOCKS5Dialer(address string, auth *proxy.Auth) (Dialer, error) {
	d, err := proxy.SOCKS5("tcp", address, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 %s: %w", address, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks5 %s: dialer does not support contexts", address)
	}
	return cd, nil
}
