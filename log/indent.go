package log

import "github.com/sirupsen/logrus"

// indentHook prefixes every message it fires on with a fixed indent string.
type indentHook struct {
	indent string
}

func (h indentHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h indentHook) Fire(entry *logrus.Entry) error {
	entry.Message = h.indent + entry.Message

	return nil
}

// WithIndent runs fn with a copy of logger whose messages are prefixed with indent,
// used to visually nest a sub-section's log lines under their parent's.
func WithIndent(logger *logrus.Entry, indent string, fn func(*logrus.Entry)) {
	nested := logrus.New()
	nested.SetOutput(logger.Logger.Out)
	nested.SetLevel(logger.Logger.Level)
	nested.SetFormatter(logger.Logger.Formatter)
	nested.AddHook(indentHook{indent: indent})

	fn(nested.WithFields(logger.Data))
}
