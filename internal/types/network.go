package types

import "net"

// VersionOf returns the address family of ip.
// Anything that is not a valid IPv4 address is reported as IPv6.
func VersionOf(ip string) IPVersion {
	if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
		return IPv4
	}
	return IPv6
}
