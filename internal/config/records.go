package config

import (
	"net"
	"strings"

	"github.com/crowlark/beacon/internal/protocol"
	"github.com/crowlark/beacon/responder"
)

// PublishRecord pairs a record with the uniqueness flag responder.Publish
// expects, since Service doesn't carry that distinction itself.
type PublishRecord struct {
	Record responder.Record
	Unique bool
}

// Records expands s into the owned records spec.md §6's configuration
// collaborator contract describes: one shared PTR for the service type
// pointing at the instance, one unique SRV and one unique TXT for the
// instance, and one unique A (or AAAA) per address of the target host.
func (s Service) Records() []PublishRecord {
	serviceName := canonicalLocal(s.Name)
	instanceName := s.Instance + "." + serviceName
	targetHost := canonicalLocal(s.TargetHost)

	out := []PublishRecord{
		{Unique: false, Record: responder.Record{
			Name: serviceName, Type: responder.TypePTR, TTL: protocol.TTLService,
			RData: responder.PTRData{Name: instanceName},
		}},
		{Unique: true, Record: responder.Record{
			Name: instanceName, Type: responder.TypeSRV, TTL: protocol.TTLService,
			RData: responder.SRVData{Priority: 0, Weight: 0, Port: s.Port, Target: targetHost},
		}},
		{Unique: true, Record: responder.Record{
			Name: instanceName, Type: responder.TypeTXT, TTL: protocol.TTLService,
			RData: responder.TXTData{Pairs: s.TXTPairs()},
		}},
	}

	for _, addr := range s.Addresses {
		ip := net.ParseIP(addr)
		if ip == nil {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			out = append(out, PublishRecord{Unique: true, Record: responder.Record{
				Name: targetHost, Type: responder.TypeA, TTL: protocol.TTLHostname, RData: responder.AData{Addr: v4},
			}})
			continue
		}
		out = append(out, PublishRecord{Unique: true, Record: responder.Record{
			Name: targetHost, Type: responder.TypeAAAA, TTL: protocol.TTLHostname, RData: responder.AAAAData{Addr: ip},
		}})
	}

	return out
}

// canonicalLocal appends the trailing dot spec.md's wire-level names all
// carry, if the caller's config omitted it.
func canonicalLocal(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}
