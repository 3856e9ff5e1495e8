package security

import (
	"fmt"
	"net"
)

// Network prefixes no outbound request may target.
var blockedCIDRs = []string{
	"10.0.0.0/8",     // RFC 1918 private
	"172.16.0.0/12",  // RFC 1918 private
	"192.168.0.0/16", // RFC 1918 private
	"127.0.0.0/8",    // loopback
	"169.254.0.0/16", // link-local
	"224.0.0.0/4",    // multicast
	"240.0.0.0/4",    // reserved
	"::1/128",        // IPv6 loopback
	"fc00::/7",       // IPv6 unique local
	"fe80::/10",      // IPv6 link-local
}

var blockedNetworks []*net.IPNet

func init() {
	blockedNetworks = mustParseCIDRs(blockedCIDRs)
}

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("security: bad blocked CIDR %q: %v", cidr, err))
		}
		networks = append(networks, network)
	}
	return networks
}

// IsBlockedAddr reports whether ip falls inside any blocked prefix.
// The table is immutable after init and safe for concurrent use.
func IsBlockedAddr(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
