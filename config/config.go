package config

import (
	"github.com/quietdns/vdns/log"

	"github.com/sirupsen/logrus"
)

// Config holds the complete, resolved runtime configuration for vdns.
type Config struct {
	Log log.Config `yaml:"log"`

	DNSPorts   ListenConfig `yaml:"ports" default:"[\"53\"]"`
	TLSPorts   ListenConfig `yaml:"tlsPorts"`
	HTTPPorts  ListenConfig `yaml:"httpPorts"`
	HTTPSPorts ListenConfig `yaml:"httpsPorts"`
	CertFile   string       `yaml:"certFile"`
	KeyFile    string       `yaml:"keyFile"`

	BootstrapDNS     BootstrapDNSConfig `yaml:"bootstrapDns"`
	ConnectIPVersion IPVersion          `yaml:"connectIPVersion"`

	Upstream     UpstreamConfig      `yaml:"upstream"`
	CustomDNS    CustomDNS           `yaml:"customDNS"`
	Conditional  ConditionalUpstream `yaml:"conditional"`
	Blocking     Blocking            `yaml:"blocking"`
	ClientLookup ClientLookup        `yaml:"clientLookup"`
	Caching      CachingConfig       `yaml:"caching"`
	QueryLog     QueryLogConfig      `yaml:"queryLog"`
	Prometheus   MetricsConfig       `yaml:"prometheus"`
	Redis        RedisConfig         `yaml:"redis"`
	Filtering    FilteringConfig     `yaml:"filtering"`
	HostsFile    HostsFileConfig     `yaml:"hostsFile"`
	SUDN         SUDN                `yaml:"sudn"`
	Ecs          EcsConfig           `yaml:"ecs"`
	DNS64        DNS64               `yaml:"dns64"`
	DNSSEC       DNSSEC              `yaml:"dnssec"`
	EDE          EDE                 `yaml:"ede"`
	FQDNOnly     FQDNOnly            `yaml:"fqdnOnly"`
}

// LogConfig writes a human readable representation of cfg's top level settings to logger.
func (cfg *Config) LogConfig(logger *logrus.Entry) {
	logger.Infof("ports.dns = %s", cfg.DNSPorts)
	logger.Infof("ports.tls = %s", cfg.TLSPorts)
	logger.Infof("ports.http = %s", cfg.HTTPPorts)
	logger.Infof("ports.https = %s", cfg.HTTPSPorts)
	logger.Infof("connectIPVersion = %s", cfg.ConnectIPVersion)
}
