// Package privacy keeps client identifiers out of logs in full form.
package privacy

import "net/netip"

// Prefix lengths kept after anonymization.
const (
	IPv4PrefixBits = 24
	IPv6PrefixBits = 48
)

// AnonymizeIP masks an address down to its network prefix: /24 for IPv4
// (including IPv4-mapped IPv6) and /48 for IPv6. Zones are dropped.
// It returns "unknown" for an empty input and "invalid" when ip does not parse.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := IPv6PrefixBits
	if addr.Is4() {
		bits = IPv4PrefixBits
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
