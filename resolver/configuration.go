package resolver

import "github.com/sirupsen/logrus"

// LogResolverConfig logs a resolver's Configuration() lines under a header naming its type.
func LogResolverConfig(r Resolver, logger *logrus.Entry) {
	lines := r.Configuration()
	if len(lines) == 0 {
		return
	}

	logger.Infof("%s:", Name(r))

	for _, line := range lines {
		logger.Infof("  %s", line)
	}
}
