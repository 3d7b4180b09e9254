package config

import "net"

// BootstrappedUpstreamConfig pins an upstream resolver's hostname to a set of
// known IP addresses, so it can be resolved before any other resolver is available.
type BootstrappedUpstreamConfig struct {
	Upstream Upstream `yaml:"upstream"`
	IPs      []net.IP `yaml:"ips"`
}

// BootstrapDNSConfig is the ordered list of bootstrap upstreams tried in turn.
type BootstrapDNSConfig []BootstrappedUpstreamConfig

// UnmarshalYAML allows a single bootstrap upstream to be given as a scalar.
func (b *BootstrapDNSConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var multi []BootstrappedUpstreamConfig
	if err := unmarshal(&multi); err == nil {
		*b = multi

		return nil
	}

	var single BootstrappedUpstreamConfig
	if err := unmarshal(&single); err != nil {
		return err
	}

	*b = BootstrapDNSConfig{single}

	return nil
}
