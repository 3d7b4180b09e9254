package config

import (
	"github.com/quietdns/vdns/log"
	"github.com/sirupsen/logrus"
)

// InitStrategy controls how list sources are loaded on startup.
type InitStrategy uint16

const (
	// InitStrategyBlocking waits for all sources to load before serving queries.
	InitStrategyBlocking InitStrategy = iota
	// InitStrategyFast starts serving queries immediately, loading sources in the background.
	InitStrategyFast
	// InitStrategyFailOnError aborts startup if any source fails to load.
	InitStrategyFailOnError
)

// String implements `fmt.Stringer`.
func (s InitStrategy) String() string {
	switch s {
	case InitStrategyFast:
		return "fast"
	case InitStrategyFailOnError:
		return "failOnError"
	default:
		return "blocking"
	}
}

// InitConfig groups the options controlling source-loading startup behavior.
type InitConfig struct {
	Strategy InitStrategy `yaml:"strategy" default:"blocking"`
}

// DownloadsConfig groups the options controlling how remote list sources are fetched.
type DownloadsConfig struct {
	Timeout  Duration `yaml:"timeout" default:"5s"`
	Attempts uint     `yaml:"attempts" default:"3"`
	Cooldown Duration `yaml:"cooldown" default:"500ms"`
}

// SourceLoading configures how blocking list sources are downloaded, parsed and refreshed.
type SourceLoading struct {
	Init               InitConfig      `yaml:",inline"`
	Downloads          DownloadsConfig `yaml:"downloads"`
	RefreshPeriod      Duration        `yaml:"refreshPeriod" default:"4h"`
	MaxErrorsPerSource int             `yaml:"maxErrorsPerSource" default:"5"`
	Concurrency        uint            `yaml:"concurrency" default:"4"`
}

// LogConfig implements `config.Configurable`.
func (c *SourceLoading) LogConfig(logger *logrus.Entry) {
	logger.Infof("strategy = %s", c.Init.Strategy)
	logger.Infof("refreshPeriod = %s", c.RefreshPeriod)
	logger.Infof("concurrency = %d", c.Concurrency)
	logger.Info("downloads:")
	log.WithIndent(logger, "  ", func(logger *logrus.Entry) {
		logger.Infof("timeout = %s", c.Downloads.Timeout)
		logger.Infof("attempts = %d", c.Downloads.Attempts)
		logger.Infof("cooldown = %s", c.Downloads.Cooldown)
	})
}
