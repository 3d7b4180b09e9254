package config

import "strings"

// ListenConfig is a list of bind addresses/ports for a single service.
type ListenConfig []string

// String implements `fmt.Stringer`.
func (l ListenConfig) String() string {
	return strings.Join(l, ", ")
}

// UnmarshalYAML allows a single scalar value or a list of values.
func (l *ListenConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var multi []string
	if err := unmarshal(&multi); err == nil {
		*l = multi

		return nil
	}

	var single string
	if err := unmarshal(&single); err != nil {
		return err
	}

	*l = strings.Split(single, ",")

	return nil
}
