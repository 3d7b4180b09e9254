package dnssec

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/miekg/dns"
)

// rootAnchor represents a root KSK trust anchor with metadata
type rootAnchor struct {
	name   string
	keytag uint16
	ds     string // DNSKEY in zone file format
}

const (
	// Root KSK key tags from IANA
	ksk2017Tag = 20326 // KSK-2017
	ksk2024Tag = 38696 // KSK-2024
)

// getDefaultRootTrustAnchors returns the default root KSK trust anchors from IANA
// Source: https://data.iana.org/root-anchors/root-anchors.xml
// Last Updated: 2025-10-29
//
// Includes two root KSKs:
// - KSK-2017 (Key Tag 20326): Active since February 2017
// - KSK-2024 (Key Tag 38696): Active since July 2024
func getDefaultRootTrustAnchors() []string {
	anchors := []rootAnchor{
		{
			name:   "KSK-2017",
			keytag: ksk2017Tag,
			ds: ". 172800 IN DNSKEY 257 3 8 " +
				"AwEAAaz/tAm8yTn4Mfeh5eyI96WSVexTBAvkMgJzkKTOiW1vkIbzxeF3+/4RgWOq7HrxRixHlFlExOLAJr5emLvN7SWXgnLh4+B5xQlNVz8Og8k" +
				"vArMtNROxVQuCaSnIDdD5LKyWbRd2n9WGe2R8PzgCmr3EgVLrjyBxWezF0jLHwVN8efS3rCj/EWgvIWgb9tarpVUDK/b58Da+sqqls3eNbuv7pr" +
				"+eoZG+SrDK6nWeL3c6H5Apxz7LjVc1uTIdsIXxuOLYA4/ilBmSVIzuDWfdRUfhHdY6+cn8HFRm+2hM8AnXGXws9555KrUB5qihylGa8subX2Nn6" +
				"UwNR1AkUTV74bU=",
		},
		{
			name:   "KSK-2024",
			keytag: ksk2024Tag,
			ds: ". 172800 IN DNSKEY 257 3 8 " +
				"AwEAAa96jeuknZlaeSrvyAJj6ZHv28hhOKkx3rLGXVaC6rXTsDc449/cidltpkyGwCJNnOAlFNKF2jBosZBU5eeHspaQWOmOElZsjICMQMC3aeH" +
				"bGiShvZsx4wMYSjH8e7Vrhbu6irwCzVBApESjbUdpWWmEnhathWu1jo+siFUiRAAxm9qyJNg/wOZqqzL/dL/q8PkcRU5oUKEpUge71M3ej2/7CP" +
				"qpdVwuMoTvoB+ZOT4YeGyxMvHmbrxlFzGOHOijtzN+u1TQNatX2XBuzZNQ1K+s2CXkPIZo7s6JgZyvaBevYtxPvYLw4z9mR7K2vaF18UYH9Z9GN" +
				"UUeayffKC73PYc=",
		},
	}

	result := make([]string, len(anchors))
	for i, anchor := range anchors {
		result[i] = anchor.ds
	}

	return result
}

// TrustAnchor represents a DNSSEC trust anchor, either a DNSKEY record
// (the classic, directly-trusted form) or a DS record (a digest of a
// DNSKEY, verified against the delegation's own key set once fetched).
type TrustAnchor struct {
	Key *dns.DNSKEY
	DS  *dns.DS
}

// TrustAnchorStore manages DNSSEC trust anchors, indexed by owner name.
// Lookups walk from the queried name up to its closest configured
// ancestor, since a trust anchor need not be configured for every zone
// on the chain (RFC 4035 §5.2 allows islands of trust below the root).
type TrustAnchorStore struct {
	mu      sync.RWMutex
	anchors map[string][]*TrustAnchor // keyed by owner domain name
}

// NewTrustAnchorStore creates a new trust anchor store with the given trust anchors.
//
// If customAnchors is empty, the default root KSK trust anchors from IANA are used.
// Custom anchors should be DNSKEY or DS records in zone file format; DNSKEY
// anchors must have the SEP (KSK) flag set.
//
// Example anchor format:
//
//	". 172800 IN DNSKEY 257 3 8 AwEAAaz/tAm8yTn4Mfeh5eyI96WSVexTBAvk..."
//
// Parameters:
//   - customAnchors: List of DNSKEY/DS record strings to use as trust anchors (optional)
//
// Returns a configured trust anchor store or an error if any anchor is invalid.
func NewTrustAnchorStore(customAnchors []string) (*TrustAnchorStore, error) {
	store := &TrustAnchorStore{
		anchors: make(map[string][]*TrustAnchor),
	}

	// Load custom trust anchors if provided, otherwise use defaults
	anchors := customAnchors
	if len(anchors) == 0 {
		anchors = getDefaultRootTrustAnchors()
	}

	for _, anchor := range anchors {
		if err := store.AddTrustAnchor(anchor); err != nil {
			return nil, fmt.Errorf("failed to load trust anchor: %w", err)
		}
	}

	return store, nil
}

// NewTrustAnchorStoreFromReader builds a trust anchor store from a
// master-file formatted stream of DNSKEY and/or DS records, as described
// for the trustAnchorFile configuration key. Records of any other type
// are skipped. customAnchors, if non-empty, are merged in alongside the
// file's contents; if both are empty, the IANA root anchors are used.
func NewTrustAnchorStoreFromReader(r io.Reader, customAnchors []string) (*TrustAnchorStore, error) {
	store := &TrustAnchorStore{
		anchors: make(map[string][]*TrustAnchor),
	}

	zp := dns.NewZoneParser(r, "", "")

	var loaded int

	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		switch rr := rr.(type) {
		case *dns.DNSKEY:
			if err := store.addDNSKEY(rr); err != nil {
				return nil, fmt.Errorf("trust anchor file: %w", err)
			}

			loaded++
		case *dns.DS:
			store.addDS(rr)

			loaded++
		default:
			// not a trust anchor record type, skip
		}
	}

	if err := zp.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse trust anchor file: %w", err)
	}

	for _, anchor := range customAnchors {
		if err := store.AddTrustAnchor(anchor); err != nil {
			return nil, fmt.Errorf("failed to load trust anchor: %w", err)
		}

		loaded++
	}

	if loaded == 0 {
		for _, anchor := range getDefaultRootTrustAnchors() {
			if err := store.AddTrustAnchor(anchor); err != nil {
				return nil, fmt.Errorf("failed to load trust anchor: %w", err)
			}
		}
	}

	return store, nil
}

// AddTrustAnchor adds a trust anchor from a DNSKEY or DS record string
func (s *TrustAnchorStore) AddTrustAnchor(anchorStr string) error {
	rr, err := dns.NewRR(anchorStr)
	if err != nil {
		return fmt.Errorf("failed to parse trust anchor: %w", err)
	}

	switch rr := rr.(type) {
	case *dns.DNSKEY:
		return s.addDNSKEY(rr)
	case *dns.DS:
		s.addDS(rr)
		return nil
	default:
		return errors.New("trust anchor is not a DNSKEY or DS record")
	}
}

func (s *TrustAnchorStore) addDNSKEY(dnskey *dns.DNSKEY) error {
	// Validate that it's a KSK (Secure Entry Point)
	if dnskey.Flags&dns.SEP == 0 {
		return errors.New("trust anchor is not a KSK (SEP flag not set)")
	}

	domain := strings.ToLower(dnskey.Header().Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.anchors[domain] = append(s.anchors[domain], &TrustAnchor{Key: dnskey})

	return nil
}

func (s *TrustAnchorStore) addDS(ds *dns.DS) {
	domain := strings.ToLower(ds.Header().Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.anchors[domain] = append(s.anchors[domain], &TrustAnchor{DS: ds})
}

// GetTrustAnchors returns trust anchors configured directly for a domain
// (exact match only; use FindClosestEnclosing for ancestor lookup).
func (s *TrustAnchorStore) GetTrustAnchors(domain string) []*TrustAnchor {
	domain = strings.ToLower(dns.Fqdn(domain))

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.anchors[domain]
}

// HasTrustAnchor returns true if the store has a trust anchor for the domain
func (s *TrustAnchorStore) HasTrustAnchor(domain string) bool {
	return len(s.GetTrustAnchors(domain)) > 0
}

// GetRootTrustAnchors returns trust anchors for the root zone
func (s *TrustAnchorStore) GetRootTrustAnchors() []*TrustAnchor {
	return s.GetTrustAnchors(".")
}

// Matches reports whether key is the key described by this trust anchor,
// either by direct comparison (DNSKEY-form anchors) or by digest
// (DS-form anchors, per RFC 4035 §5.2).
func (a *TrustAnchor) Matches(key *dns.DNSKEY) bool {
	if key == nil {
		return false
	}

	if a.Key != nil {
		return key.PublicKey == a.Key.PublicKey &&
			key.Algorithm == a.Key.Algorithm &&
			key.Flags == a.Key.Flags
	}

	if a.DS != nil {
		if key.KeyTag() != a.DS.KeyTag || key.Algorithm != a.DS.Algorithm {
			return false
		}

		computed := key.ToDS(a.DS.DigestType)
		if computed == nil {
			return false
		}

		return strings.EqualFold(computed.Digest, a.DS.Digest)
	}

	return false
}

// FindClosestEnclosing returns the trust anchors configured for the
// closest ancestor of domain (including domain itself) that has any
// configured, and the owner name they were found at. It walks labels
// from the queried name toward the root the same way chain validation
// walks parent domains, so an island of trust below the root is found
// without requiring every intermediate zone to carry its own anchor.
func (s *TrustAnchorStore) FindClosestEnclosing(domain string) ([]*TrustAnchor, string) {
	name := strings.ToLower(dns.Fqdn(domain))

	for {
		if anchors := s.GetTrustAnchors(name); len(anchors) > 0 {
			return anchors, name
		}

		if name == "." {
			return nil, ""
		}

		labels := dns.SplitDomainName(name)
		if len(labels) <= 1 {
			name = "."
			continue
		}

		name = dns.Fqdn(strings.Join(labels[1:], "."))
	}
}
