package config

import (
	"fmt"

	"github.com/miekg/dns"
)

// IPVersion restricts which IP family vdns uses to connect to upstream resolvers.
type IPVersion uint16

const (
	// IPVersionDual allows both IPv4 and IPv6.
	IPVersionDual IPVersion = iota
	// IPVersionV4 restricts connections to IPv4.
	IPVersionV4
	// IPVersionV6 restricts connections to IPv6.
	IPVersionV6
)

// String implements `fmt.Stringer`.
func (v IPVersion) String() string {
	switch v {
	case IPVersionV4:
		return "v4"
	case IPVersionV6:
		return "v6"
	default:
		return "dual"
	}
}

// Net returns the network name used by `net.Resolver.LookupIP`.
func (v IPVersion) Net() string {
	switch v {
	case IPVersionV4:
		return "ip4"
	case IPVersionV6:
		return "ip6"
	default:
		return "ip"
	}
}

// QTypes returns the DNS question types allowed for this IP version.
func (v IPVersion) QTypes() []dns.Type {
	switch v {
	case IPVersionV4:
		return []dns.Type{dns.Type(dns.TypeA)}
	case IPVersionV6:
		return []dns.Type{dns.Type(dns.TypeAAAA)}
	default:
		return []dns.Type{dns.Type(dns.TypeA), dns.Type(dns.TypeAAAA)}
	}
}

// UnmarshalYAML implements `yaml.Unmarshaler`.
func (v *IPVersion) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	switch s {
	case "", "dual", "v4v6":
		*v = IPVersionDual
	case "v4":
		*v = IPVersionV4
	case "v6":
		*v = IPVersionV6
	default:
		return fmt.Errorf("invalid connectIPVersion '%s'", s)
	}

	return nil
}
