package netutil

import "net"

// MustParseCIDRs parses CIDR strings into []*net.IPNet; invalid entries are
// skipped rather than rejected so a bad config line cannot take the admin
// plane down.
func MustParseCIDRs(cidrs []string) (out []*net.IPNet) {
	for _, s := range cidrs {
		if _, n, err := net.ParseCIDR(s); err == nil && n != nil {
			out = append(out, n)
		}
	}
	return
}
