// Code generated by go-enum would normally live here.
// It is hand-maintained to match the ENUM() declarations in logger.go.
package log

import "fmt"

const (
	// FormatTypeText is a FormatType of type text.
	FormatTypeText FormatType = iota
	// FormatTypeJson is a FormatType of type json.
	FormatTypeJson
)

//nolint:gochecknoglobals
var formatTypeNames = map[FormatType]string{
	FormatTypeText: "text",
	FormatTypeJson: "json",
}

// String implements fmt.Stringer.
func (f FormatType) String() string {
	if name, ok := formatTypeNames[f]; ok {
		return name
	}

	return fmt.Sprintf("FormatType(%d)", int(f))
}

const (
	// LevelInfo is a Level of type info.
	LevelInfo Level = iota
	// LevelTrace is a Level of type trace.
	LevelTrace
	// LevelDebug is a Level of type debug.
	LevelDebug
	// LevelWarn is a Level of type warn.
	LevelWarn
	// LevelError is a Level of type error.
	LevelError
	// LevelFatal is a Level of type fatal.
	LevelFatal
)

//nolint:gochecknoglobals
var levelNames = map[Level]string{
	LevelInfo:  "info",
	LevelTrace: "trace",
	LevelDebug: "debug",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

// String implements fmt.Stringer.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}

	return fmt.Sprintf("Level(%d)", int(l))
}
