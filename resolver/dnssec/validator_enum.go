// Code generated by go-enum would normally live here.
// It is hand-maintained to match the ENUM() declaration in validator.go.
package dnssec

import "fmt"

const (
	// ValidationResultSecure is a ValidationResult of type Secure.
	// Valid DNSSEC signatures and chain of trust.
	ValidationResultSecure ValidationResult = iota
	// ValidationResultInsecure is a ValidationResult of type Insecure.
	// No DNSSEC (unsigned zone).
	ValidationResultInsecure
	// ValidationResultBogus is a ValidationResult of type Bogus.
	// Invalid DNSSEC (failed validation).
	ValidationResultBogus
	// ValidationResultIndeterminate is a ValidationResult of type Indeterminate.
	// Validation could not be completed.
	ValidationResultIndeterminate
)

//nolint:gochecknoglobals
var validationResultNames = map[ValidationResult]string{
	ValidationResultSecure:        "Secure",
	ValidationResultInsecure:      "Insecure",
	ValidationResultBogus:         "Bogus",
	ValidationResultIndeterminate: "Indeterminate",
}

// String implements fmt.Stringer.
func (r ValidationResult) String() string {
	if name, ok := validationResultNames[r]; ok {
		return name
	}

	return fmt.Sprintf("ValidationResult(%d)", int(r))
}
