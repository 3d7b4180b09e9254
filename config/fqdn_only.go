package config

import "github.com/sirupsen/logrus"

// FQDNOnly rejects queries for names that are not fully qualified.
type FQDNOnly struct {
	Enable bool `yaml:"enable" default:"false"`
}

// IsEnabled implements `config.Configurable`.
func (c *FQDNOnly) IsEnabled() bool {
	return c.Enable
}

// LogConfig implements `config.Configurable`.
func (c *FQDNOnly) LogConfig(logger *logrus.Entry) {
	logger.Infof("enabled = %t", c.Enable)
}
