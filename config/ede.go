package config

import "github.com/sirupsen/logrus"

// EDE controls whether Extended DNS Error (RFC 8914) options are attached to responses.
type EDE struct {
	Enable bool `yaml:"enable" default:"false"`
}

// IsEnabled implements `config.Configurable`.
func (c *EDE) IsEnabled() bool {
	return c.Enable
}

// LogConfig implements `config.Configurable`.
func (c *EDE) LogConfig(logger *logrus.Entry) {
	logger.Infof("enabled = %t", c.Enable)
}
