// Package domain provides canonical DNS name and RRset operations shared
// by the validator, the in-memory zone authority, and the credibility
// cache. It wraps github.com/miekg/dns's label-level primitives behind the
// small operation set those three callers actually need.
package domain

import (
	"errors"
	"strings"

	"github.com/miekg/dns"
)

// ErrNameTooLong is returned when concatenating or substituting labels
// would produce a name exceeding the 255-octet wire-format limit (RFC
// 1035 §3.1).
var ErrNameTooLong = errors.New("domain: resulting name exceeds 255 octets")

// Name is a canonical, absolute (FQDN) domain name.
type Name string

// NewName returns the canonical, fully-qualified form of s.
func NewName(s string) Name {
	return Name(dns.CanonicalName(s))
}

// String returns the canonical textual form; no length check is made.
func (n Name) String() string {
	return string(n)
}

// Labels returns the name split into its individual labels, root-most
// last (e.g. "www.example.com." -> ["www", "example", "com"]).
func (n Name) Labels() []string {
	return dns.SplitDomainName(string(n))
}

// IsRoot reports whether n is the DNS root.
func (n Name) IsRoot() bool {
	return string(n) == "."
}

// Subdomain reports whether n is equal to or a descendant of suffix.
func (n Name) Subdomain(suffix Name) bool {
	return dns.IsSubDomain(string(suffix), string(n))
}

// CompareTo returns -1, 0, or 1 according to RFC 4034 §6.1 canonical DNS
// name ordering, comparing labels right-to-left (least significant label
// first) and treating shorter names as sorting before names for which
// they are a proper suffix.
func (n Name) CompareTo(other Name) int {
	order, _ := dns.Compare(string(n), string(other))

	return order
}

// Equal reports whether n and other are the same canonical name.
func (n Name) Equal(other Name) bool {
	return n.CompareTo(other) == 0
}

// Parent returns the immediate parent of n, or n itself if n is already root.
func (n Name) Parent() Name {
	if n.IsRoot() {
		return n
	}

	labels := n.Labels()
	if len(labels) <= 1 {
		return Name(".")
	}

	return NewName(strings.Join(labels[1:], "."))
}

// Wild returns the wildcard name "*.n" that would own a synthesized
// answer for any name owned by n (RFC 4592, RFC 4035 §3.3.1).
func (n Name) Wild() (Name, error) {
	wild := "*." + string(n)
	if len(wild) > 255 {
		return "", ErrNameTooLong
	}

	return Name(wild), nil
}

// Concatenate builds the name formed by joining prefixLabels (ordered
// most-significant-last, as returned by Labels) onto target - the
// "qname minus its matched suffix, prepended to a new suffix" operation
// used both for wildcard expansion and for DNAME substitution (RFC 6672
// §3.2). Returns ErrNameTooLong if the result would exceed the
// 255-octet wire-format ceiling.
func Concatenate(prefixLabels []string, target Name) (Name, error) {
	var joined string
	if len(prefixLabels) == 0 {
		joined = string(target)
	} else {
		joined = strings.Join(prefixLabels, ".") + "." + string(target)
	}

	if len(joined) > 255 {
		return "", ErrNameTooLong
	}

	return NewName(joined), nil
}

// FromDNAME rewrites qname (owned below dname's owner) to the name it
// resolves to via dname's Target, per RFC 6672 §3.2. Returns
// ErrNameTooLong if the substitution would exceed the wire-format limit,
// matching BIND/Unbound's rejection of the DNAME rather than silently
// truncating it.
func FromDNAME(qname Name, dname *dns.DNAME) (Name, error) {
	owner := NewName(dname.Header().Name)
	target := NewName(dname.Target)

	if !qname.Subdomain(owner) || qname.Equal(owner) {
		return "", errors.New("domain: qname is not a proper descendant of the DNAME owner")
	}

	ownerLabels := len(owner.Labels())
	qLabels := qname.Labels()
	prefixLabels := qLabels[:len(qLabels)-ownerLabels]

	return Concatenate(prefixLabels, target)
}
