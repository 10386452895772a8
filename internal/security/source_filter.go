package security

import "net"

// SourceFilter validates that a packet's source address is plausible
// for link-local mDNS traffic (RFC 6762 §2): either on the same subnet
// as the receiving interface, or IPv4 link-local (RFC 3927) / IPv6
// link-local (fe80::/10). Anything else is routed traffic that has no
// business reaching a multicast-only protocol; Responder.Input drops it
// before acting on the decoded message.
type SourceFilter struct {
	iface      net.Interface
	ifaceAddrs []net.IPNet
}

// NewSourceFilter creates a source filter for iface, caching its
// addresses once so IsValid never needs a syscall in the per-packet
// hot path.
func NewSourceFilter(iface net.Interface) (*SourceFilter, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return &SourceFilter{iface: iface}, nil
	}

	ipnets := make([]net.IPNet, 0, len(addrs))
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok {
			ipnets = append(ipnets, *ipnet)
		}
	}

	return &SourceFilter{iface: iface, ifaceAddrs: ipnets}, nil
}

// IsValid reports whether srcIP is an acceptable mDNS source: link-local
// (v4 or v6) or within the same subnet as the receiving interface.
func (sf *SourceFilter) IsValid(srcIP net.IP) bool {
	if srcIP.IsLinkLocalUnicast() {
		return true
	}

	for _, ipnet := range sf.ifaceAddrs {
		if ipnet.Contains(srcIP) {
			return true
		}
	}

	return false
}

// isPrivate reports whether ip falls in one of the RFC 1918 private
// IPv4 ranges. It is unexported and not called by the responder or by
// IsValid.
func isPrivate(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}

	if ip4[0] == 10 {
		return true
	}
	if ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31 {
		return true
	}
	if ip4[0] == 192 && ip4[1] == 168 {
		return true
	}

	return false
}
