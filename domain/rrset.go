package domain

import (
	"errors"

	"github.com/miekg/dns"
)

// ErrRRsetMismatch is returned when a record's owner name, class, or type
// doesn't match the RRset it's being added to.
var ErrRRsetMismatch = errors.New("domain: record does not match RRset owner/class/type")

// RRsetKey identifies an RRset by owner name, class, and type.
type RRsetKey struct {
	Name   Name
	Class  uint16
	Type   uint16
}

// RRset is a set of resource records sharing an owner name, class, and
// type, plus the RRSIG(s) covering them (RFC 4034 §3).
type RRset struct {
	Key  RRsetKey
	RRs  []dns.RR
	Sigs []*dns.RRSIG
}

// NewRRset creates an empty RRset for the given key.
func NewRRset(key RRsetKey) *RRset {
	return &RRset{Key: key}
}

// AddRR appends rr to the set, enforcing the owner/class/type invariant.
func (s *RRset) AddRR(rr dns.RR) error {
	h := rr.Header()

	key := RRsetKey{Name: NewName(h.Name), Class: h.Class, Type: h.Rrtype}
	if len(s.RRs) == 0 && len(s.Sigs) == 0 {
		s.Key = key
	} else if key != s.Key {
		return ErrRRsetMismatch
	}

	s.RRs = append(s.RRs, rr)

	return nil
}

// AddSig appends an RRSIG covering this set, enforcing that its type
// covered and owner name match the RRset.
func (s *RRset) AddSig(sig *dns.RRSIG) error {
	if NewName(sig.Header().Name) != s.Key.Name || sig.TypeCovered != s.Key.Type {
		return ErrRRsetMismatch
	}

	s.Sigs = append(s.Sigs, sig)

	return nil
}

// SameRRset reports whether a and b carry the same owner/class/type and
// the same record content, ignoring TTL and ordering.
func SameRRset(a, b *RRset) bool {
	if a.Key != b.Key || len(a.RRs) != len(b.RRs) {
		return false
	}

	seen := make(map[string]int, len(a.RRs))
	for _, rr := range a.RRs {
		seen[rr.String()]++
	}

	for _, rr := range b.RRs {
		if seen[rr.String()] == 0 {
			return false
		}

		seen[rr.String()]--
	}

	return true
}

// SecureRRset pairs an RRset with the outcome of validating it and the
// name of the key that signed it, letting callers cache a validation
// verdict alongside the data it applies to.
type SecureRRset struct {
	RRset  *RRset
	Status int // holds a resolver/dnssec.ValidationResult value; typed as int to avoid an import cycle
	Signer Name
}

// GroupRRsets groups a flat slice of resource records into RRsets keyed
// by owner name, class, and type, with RRSIGs attached to the set they
// cover. Records that don't share a key with any RRSIG are still
// returned, just with an empty Sigs slice - callers decide what an
// unsigned RRset means for their validation state.
func GroupRRsets(rrs []dns.RR) map[RRsetKey]*RRset {
	sets := make(map[RRsetKey]*RRset)

	var sigs []*dns.RRSIG

	for _, rr := range rrs {
		if sig, ok := rr.(*dns.RRSIG); ok {
			sigs = append(sigs, sig)
			continue
		}

		h := rr.Header()
		key := RRsetKey{Name: NewName(h.Name), Class: h.Class, Type: h.Rrtype}

		set, ok := sets[key]
		if !ok {
			set = NewRRset(key)
			sets[key] = set
		}

		_ = set.AddRR(rr)
	}

	for _, sig := range sigs {
		key := RRsetKey{Name: NewName(sig.Header().Name), Class: sig.Header().Class, Type: sig.TypeCovered}

		set, ok := sets[key]
		if !ok {
			set = NewRRset(key)
			sets[key] = set
		}

		_ = set.AddSig(sig)
	}

	return sets
}
