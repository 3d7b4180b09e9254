// Code generated by go-enum would normally live here.
// It is hand-maintained to match the ENUM() declarations in models.go.
package model

import "fmt"

const (
	// ResponseTypeRESOLVED is a ResponseType of type RESOLVED.
	// The response was resolved by the external upstream resolver.
	ResponseTypeRESOLVED ResponseType = iota
	// ResponseTypeCACHED is a ResponseType of type CACHED.
	// The response was resolved from cache.
	ResponseTypeCACHED
	// ResponseTypeBLOCKED is a ResponseType of type BLOCKED.
	// The query was blocked.
	ResponseTypeBLOCKED
	// ResponseTypeCONDITIONAL is a ResponseType of type CONDITIONAL.
	// The query was resolved by the conditional upstream resolver.
	ResponseTypeCONDITIONAL
	// ResponseTypeCUSTOMDNS is a ResponseType of type CUSTOMDNS.
	// The query was resolved by a custom rule.
	ResponseTypeCUSTOMDNS
	// ResponseTypeSPECIAL is a ResponseType of type SPECIAL.
	// The query matched a special-use domain name.
	ResponseTypeSPECIAL
	// ResponseTypeFILTERED is a ResponseType of type FILTERED.
	// The query was filtered before being resolved.
	ResponseTypeFILTERED
	// ResponseTypeNOTFQDN is a ResponseType of type NOTFQDN.
	// The query was rejected for not being fully qualified.
	ResponseTypeNOTFQDN
	// ResponseTypeHOSTSFILE is a ResponseType of type HOSTSFILE.
	// The response was resolved from the hosts file.
	ResponseTypeHOSTSFILE
	// ResponseTypeSYNTHESIZED is a ResponseType of type SYNTHESIZED.
	// The response was synthesized, e.g. by DNS64 or DNSSEC.
	ResponseTypeSYNTHESIZED
)

//nolint:gochecknoglobals
var responseTypeNames = map[ResponseType]string{
	ResponseTypeRESOLVED:    "RESOLVED",
	ResponseTypeCACHED:      "CACHED",
	ResponseTypeBLOCKED:     "BLOCKED",
	ResponseTypeCONDITIONAL: "CONDITIONAL",
	ResponseTypeCUSTOMDNS:   "CUSTOMDNS",
	ResponseTypeSPECIAL:     "SPECIAL",
	ResponseTypeFILTERED:    "FILTERED",
	ResponseTypeNOTFQDN:     "NOTFQDN",
	ResponseTypeHOSTSFILE:   "HOSTSFILE",
	ResponseTypeSYNTHESIZED: "SYNTHESIZED",
}

// String implements fmt.Stringer.
func (r ResponseType) String() string {
	if name, ok := responseTypeNames[r]; ok {
		return name
	}

	return fmt.Sprintf("ResponseType(%d)", int(r))
}

const (
	// RequestProtocolTCP is a RequestProtocol of type TCP.
	RequestProtocolTCP RequestProtocol = iota
	// RequestProtocolUDP is a RequestProtocol of type UDP.
	RequestProtocolUDP
)

//nolint:gochecknoglobals
var requestProtocolNames = map[RequestProtocol]string{
	RequestProtocolTCP: "TCP",
	RequestProtocolUDP: "UDP",
}

// String implements fmt.Stringer.
func (p RequestProtocol) String() string {
	if name, ok := requestProtocolNames[p]; ok {
		return name
	}

	return fmt.Sprintf("RequestProtocol(%d)", int(p))
}
