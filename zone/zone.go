// Package zone implements an in-memory authoritative name-to-records
// store used to serve trust-anchor-adjacent fixtures and integration
// tests: an owner-name-indexed authority with wildcard synthesis and
// delegation/CNAME/DNAME awareness, modeled on the map-backed lookup
// idiom the resolver package already uses for its custom-DNS and
// hosts-file authorities.
package zone

import (
	"errors"
	"fmt"
	"sort"

	"github.com/quietdns/vdns/domain"

	"github.com/miekg/dns"
)

// SetResponseType tags the outcome of a Zone lookup.
type SetResponseType int

const (
	// SUCCESSFUL means the queried RRset was found at the queried name.
	SUCCESSFUL SetResponseType = iota
	// CNAME means the queried name owns a CNAME instead of the queried type.
	CNAME
	// DNAME means an ancestor of the queried name owns a DNAME.
	DNAME
	// DELEGATION means an ancestor of the queried name owns an NS RRset
	// that delegates authority away from this zone.
	DELEGATION
	// NXRRSET means the queried name exists but not with the queried type.
	NXRRSET
	// NXDOMAIN means neither the queried name nor any wildcard covers it.
	NXDOMAIN
)

func (t SetResponseType) String() string {
	switch t {
	case SUCCESSFUL:
		return "SUCCESSFUL"
	case CNAME:
		return "CNAME"
	case DNAME:
		return "DNAME"
	case DELEGATION:
		return "DELEGATION"
	case NXRRSET:
		return "NXRRSET"
	case NXDOMAIN:
		return "NXDOMAIN"
	default:
		return "UNKNOWN"
	}
}

// SetResponse is the tagged result of Zone.FindRecords.
type SetResponse struct {
	Type    SetResponseType
	RRs     []dns.RR
	Wildcard bool // true if RRs were synthesized from a wildcard owner
}

var (
	// ErrMissingSOA is returned by New when the record set has no SOA, or
	// more than one, at the zone apex.
	ErrMissingSOA = errors.New("zone: exactly one apex SOA record is required")
	// ErrMissingApexNS is returned by New when the zone apex has no NS records.
	ErrMissingApexNS = errors.New("zone: at least one apex NS record is required")
)

type record struct {
	name domain.Name
	rr   dns.RR
}

// Zone is an in-memory, single-writer authoritative record store for one
// DNS zone. Concurrent readers are safe once construction/mutation has
// stopped; callers that mutate concurrently with lookups must serialize
// access themselves, matching the contract of the resolver package's
// other in-memory authorities.
type Zone struct {
	apex    domain.Name
	byName  map[domain.Name][]dns.RR
	hasWild bool
}

// New builds a Zone from a flat record set, which must contain exactly
// one SOA and at least one NS record at apex.
func New(apex string, records []dns.RR) (*Zone, error) {
	z := &Zone{
		apex:   domain.NewName(apex),
		byName: make(map[domain.Name][]dns.RR),
	}

	var soaCount int

	for _, rr := range records {
		z.AddRecord(rr)

		if rr.Header().Rrtype == dns.TypeSOA && domain.NewName(rr.Header().Name) == z.apex {
			soaCount++
		}
	}

	if soaCount != 1 {
		return nil, ErrMissingSOA
	}

	if len(z.recordsAt(z.apex, dns.TypeNS)) == 0 {
		return nil, ErrMissingApexNS
	}

	return z, nil
}

// AddRecord adds a single record to the zone, updating the wildcard flag
// incrementally so FindRecords never has to rescan the whole store.
func (z *Zone) AddRecord(rr dns.RR) {
	name := domain.NewName(rr.Header().Name)
	z.byName[name] = append(z.byName[name], rr)

	if len(name.Labels()) > 0 && name.Labels()[0] == "*" {
		z.hasWild = true
	}
}

// RemoveRecord removes a single record (compared by wire-format string
// equality) from the zone.
func (z *Zone) RemoveRecord(rr dns.RR) {
	name := domain.NewName(rr.Header().Name)

	rrs := z.byName[name]
	for i, existing := range rrs {
		if existing.String() == rr.String() {
			z.byName[name] = append(rrs[:i], rrs[i+1:]...)
			break
		}
	}

	if len(z.byName[name]) == 0 {
		delete(z.byName, name)
	}
}

func (z *Zone) recordsAt(name domain.Name, rtype uint16) []dns.RR {
	var out []dns.RR

	for _, rr := range z.byName[name] {
		if rr.Header().Rrtype == rtype {
			out = append(out, rr)
		}
	}

	return out
}

// FindRecords looks up qtype at qname within the zone, following the
// precedence order: delegation at an ancestor, DNAME at an ancestor,
// CNAME at the exact name, exact match, NXRRSET when the name exists,
// wildcard synthesis, then NXDOMAIN.
func (z *Zone) FindRecords(qname string, qtype uint16) SetResponse {
	name := domain.NewName(qname)

	if !name.Subdomain(z.apex) {
		return SetResponse{Type: NXDOMAIN}
	}

	if resp, ok := z.checkDelegation(name); ok {
		return resp
	}

	if resp, ok := z.checkDNAME(name); ok {
		return resp
	}

	if rrs := z.recordsAt(name, dns.TypeCNAME); len(rrs) > 0 && qtype != dns.TypeCNAME {
		return SetResponse{Type: CNAME, RRs: rrs}
	}

	if rrs := z.recordsAt(name, qtype); len(rrs) > 0 {
		return SetResponse{Type: SUCCESSFUL, RRs: rrs}
	}

	if _, exists := z.byName[name]; exists {
		return SetResponse{Type: NXRRSET}
	}

	if z.hasWild {
		if resp, ok := z.checkWildcard(name, qtype); ok {
			return resp
		}
	}

	return SetResponse{Type: NXDOMAIN}
}

// checkDelegation looks for an NS RRset at a proper ancestor of name
// (never at the zone apex itself, which is this zone's own authority).
func (z *Zone) checkDelegation(name domain.Name) (SetResponse, bool) {
	for ancestor := name.Parent(); ancestor != z.apex && ancestor.Subdomain(z.apex); ancestor = ancestor.Parent() {
		if rrs := z.recordsAt(ancestor, dns.TypeNS); len(rrs) > 0 {
			return SetResponse{Type: DELEGATION, RRs: rrs}, true
		}

		if ancestor.IsRoot() {
			break
		}
	}

	return SetResponse{}, false
}

// checkDNAME looks for a DNAME at a proper ancestor of name and, if
// found, synthesizes the CNAME RFC 6672 §3.2 requires alongside it.
func (z *Zone) checkDNAME(name domain.Name) (SetResponse, bool) {
	for ancestor := name.Parent(); ancestor.Subdomain(z.apex); ancestor = ancestor.Parent() {
		if rrs := z.recordsAt(ancestor, dns.TypeDNAME); len(rrs) > 0 {
			dname, ok := rrs[0].(*dns.DNAME)
			if !ok {
				return SetResponse{Type: DNAME, RRs: rrs}, true
			}

			target, err := domain.FromDNAME(name, dname)
			if err != nil {
				return SetResponse{Type: DNAME, RRs: rrs}, true
			}

			cname := &dns.CNAME{
				Hdr: dns.RR_Header{
					Name:   name.String(),
					Rrtype: dns.TypeCNAME,
					Class:  dname.Header().Class,
					Ttl:    dname.Header().Ttl,
				},
				Target: target.String(),
			}

			return SetResponse{Type: DNAME, RRs: append(append([]dns.RR{}, rrs...), cname)}, true
		}

		if ancestor.IsRoot() {
			break
		}
	}

	return SetResponse{}, false
}

// checkWildcard synthesizes an answer from a wildcard ancestor of name,
// per RFC 4592/RFC 1034 §4.3.3, provided no closer non-wildcard name is
// already known to exist (a caller providing a name that itself exists
// with a different type never reaches this path - FindRecords already
// returns NXRRSET for that case).
func (z *Zone) checkWildcard(name domain.Name, qtype uint16) (SetResponse, bool) {
	for ancestor := name.Parent(); ancestor.Subdomain(z.apex); ancestor = ancestor.Parent() {
		wild, err := ancestor.Wild()
		if err != nil {
			continue
		}

		if rrs := z.recordsAt(wild, qtype); len(rrs) > 0 {
			synthesized := make([]dns.RR, 0, len(rrs))

			for _, rr := range rrs {
				dup := dns.Copy(rr)
				dup.Header().Name = name.String()
				synthesized = append(synthesized, dup)
			}

			return SetResponse{Type: SUCCESSFUL, RRs: synthesized, Wildcard: true}, true
		}

		if ancestor.IsRoot() {
			break
		}
	}

	return SetResponse{}, false
}

// AXFRRecords returns the zone's records in the conventional AXFR
// transfer order: apex SOA, apex NS, remaining apex RRsets, then every
// other owned name, with the apex SOA repeated last to mark the end of
// the transfer (RFC 5936 §2.2).
func (z *Zone) AXFRRecords() []dns.RR {
	var out []dns.RR

	soa := z.recordsAt(z.apex, dns.TypeSOA)
	out = append(out, soa...)
	out = append(out, z.recordsAt(z.apex, dns.TypeNS)...)

	for _, rr := range z.byName[z.apex] {
		if rr.Header().Rrtype != dns.TypeSOA && rr.Header().Rrtype != dns.TypeNS {
			out = append(out, rr)
		}
	}

	names := make([]domain.Name, 0, len(z.byName))
	for name := range z.byName {
		if name != z.apex {
			names = append(names, name)
		}
	}

	sort.Slice(names, func(i, j int) bool {
		return names[i].CompareTo(names[j]) < 0
	})

	for _, name := range names {
		out = append(out, z.byName[name]...)
	}

	out = append(out, soa...)

	return out
}

// Apex returns the zone's origin name.
func (z *Zone) Apex() string {
	return z.apex.String()
}

// String returns a short human-readable summary, for Configuration()-style reporting.
func (z *Zone) String() string {
	return fmt.Sprintf("zone %s (%d names)", z.apex, len(z.byName))
}
