package geo

import (
	"fmt"
	"net/netip"
	"strings"
)

// publicAddress parses ip and rejects anything a public geolocation API
// cannot place: private ranges, loopback, link-local, multicast and the
// unspecified address.
func publicAddress(ip string) (netip.Addr, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return netip.Addr{}, fmt.Errorf("empty address")
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("malformed address %q", ip)
	}
	addr = addr.Unmap()

	switch {
	case addr.IsLoopback():
		return addr, fmt.Errorf("loopback address %s", addr)
	case addr.IsPrivate():
		return addr, fmt.Errorf("private address %s", addr)
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return addr, fmt.Errorf("link-local address %s", addr)
	case addr.IsUnspecified():
		return addr, fmt.Errorf("unspecified address %s", addr)
	case addr.IsMulticast():
		return addr, fmt.Errorf("multicast address %s", addr)
	}
	return addr, nil
}
