package security

import (
	"net"
	"testing"
)

func TestSourceFilterAcceptsIPv4LinkLocal(t *testing.T) {
	sf := &SourceFilter{}
	if !sf.IsValid(net.ParseIP("169.254.1.1")) {
		t.Fatal("expected IPv4 link-local address to be valid")
	}
}

func TestSourceFilterAcceptsIPv6LinkLocal(t *testing.T) {
	sf := &SourceFilter{}
	if !sf.IsValid(net.ParseIP("fe80::1")) {
		t.Fatal("expected IPv6 link-local address to be valid")
	}
}

func TestSourceFilterAcceptsSameSubnet(t *testing.T) {
	_, subnet, _ := net.ParseCIDR("192.168.1.0/24")
	sf := &SourceFilter{ifaceAddrs: []net.IPNet{*subnet}}

	if !sf.IsValid(net.ParseIP("192.168.1.50")) {
		t.Fatal("expected address within interface subnet to be valid")
	}
}

func TestSourceFilterRejectsRoutedAddress(t *testing.T) {
	_, subnet, _ := net.ParseCIDR("192.168.1.0/24")
	sf := &SourceFilter{ifaceAddrs: []net.IPNet{*subnet}}

	if sf.IsValid(net.ParseIP("8.8.8.8")) {
		t.Fatal("expected routed, non-local address to be rejected")
	}
}

func TestIsPrivate(t *testing.T) {
	cases := map[string]bool{
		"10.1.2.3":     true,
		"172.16.0.1":   true,
		"172.31.255.1": true,
		"172.32.0.1":   false,
		"192.168.0.1":  true,
		"8.8.8.8":      false,
	}
	for ip, want := range cases {
		if got := isPrivate(net.ParseIP(ip)); got != want {
			t.Errorf("isPrivate(%s) = %v, want %v", ip, got, want)
		}
	}
}
