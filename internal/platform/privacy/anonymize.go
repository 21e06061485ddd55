// Package privacy keeps personal data out of logs: client addresses are
// truncated and credential attribute values never leave the request.
package privacy

import (
	"maps"
	"net/netip"
	"slices"
)

const (
	ipv4KeepBits = 24
	ipv6KeepBits = 48
)

// AnonymizeIP masks an address to its /24 (IPv4) or /48 (IPv6) network.
// IPv4-mapped IPv6 addresses are treated as IPv4. Empty input yields
// "unknown"; anything unparseable yields "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := ipv6KeepBits
	if addr.Is4() {
		bits = ipv4KeepBits
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// AttributeNames lists which attributes were disclosed, sorted, without
// their values. Use it wherever revealed attributes would otherwise be logged.
func AttributeNames(attrs map[string]string) []string {
	if len(attrs) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(attrs))
}
