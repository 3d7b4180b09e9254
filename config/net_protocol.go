package config

import "fmt"

// NetProtocol is the network protocol used to communicate with an upstream resolver.
type NetProtocol uint16

const (
	// NetProtocolTcpUdp is plain DNS over TCP and UDP (port 53).
	NetProtocolTcpUdp NetProtocol = iota
	// NetProtocolTcpTls is DNS over TLS (port 853).
	NetProtocolTcpTls
	// NetProtocolHttps is DNS over HTTPS.
	NetProtocolHttps
)

// nolint:gochecknoglobals
var netDefaultPort = map[NetProtocol]uint16{
	NetProtocolTcpUdp: 53,
	NetProtocolTcpTls: 853,
	NetProtocolHttps:  443,
}

// String implements `fmt.Stringer`.
func (p NetProtocol) String() string {
	switch p {
	case NetProtocolTcpUdp:
		return "tcp+udp"
	case NetProtocolTcpTls:
		return "tcp-tls"
	case NetProtocolHttps:
		return "https"
	default:
		return fmt.Sprintf("unknown net protocol (%d)", p)
	}
}

// ConvertPort parses and validates a port number given as a string.
func ConvertPort(port string) (uint16, error) {
	var p int

	if _, err := fmt.Sscanf(port, "%d", &p); err != nil {
		return 0, fmt.Errorf("can't convert port to number: %w", err)
	}

	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("invalid port %d", p)
	}

	return uint16(p), nil
}
