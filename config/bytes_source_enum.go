// Code generated by go-enum would normally live here.
// It is hand-maintained to match the ENUM() declaration in bytes_source.go.
package config

import "fmt"

const (
	// BytesSourceTypeText is a BytesSourceType of type text.
	// Inline YAML block.
	BytesSourceTypeText BytesSourceType = iota + 1
	// BytesSourceTypeHttp is a BytesSourceType of type http.
	// HTTP(S).
	BytesSourceTypeHttp
	// BytesSourceTypeFile is a BytesSourceType of type file.
	// Local file.
	BytesSourceTypeFile
)

//nolint:gochecknoglobals
var bytesSourceTypeNames = map[BytesSourceType]string{
	BytesSourceTypeText: "text",
	BytesSourceTypeHttp: "http",
	BytesSourceTypeFile: "file",
}

// String implements fmt.Stringer.
func (t BytesSourceType) String() string {
	if name, ok := bytesSourceTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("BytesSourceType(%d)", uint16(t))
}
