package config

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/miekg/dns"
	"github.com/mitchellh/mapstructure"
)

var textUnmarshallerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// textUnmarshallerHookFunc decodes strings into any destination type implementing
// encoding.TextUnmarshaler, e.g. Upstream, NetProtocol, IPVersion.
func textUnmarshallerHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}

		if !reflect.PointerTo(t).Implements(textUnmarshallerType) {
			return data, nil
		}

		result := reflect.New(t).Interface().(encoding.TextUnmarshaler)
		if err := result.UnmarshalText([]byte(data.(string))); err != nil {
			return nil, err
		}

		return reflect.ValueOf(result).Elem().Interface(), nil
	}
}

// bootstrapConfigUnmarshallerHookFunc allows bootstrapDns to be given as either
// a single upstream entry or a list of them.
func bootstrapConfigUnmarshallerHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(BootstrapDNSConfig{}) {
			return data, nil
		}

		if f.Kind() == reflect.Map {
			return []interface{}{data}, nil
		}

		return data, nil
	}
}

func queryTypeHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{}) (interface{}, error) {
		if f.Kind() == reflect.Slice &&
			t == reflect.TypeOf(QTypeSet{}) {
			s := reflect.ValueOf(data)

			var qtypes []dns.Type

			for i := 0; i < s.Len(); i++ {
				qt := fmt.Sprint(s.Index(i))

				for qi := 0; qi <= 110; qi++ {
					q := dns.Type(qi)
					if qt == q.String() {
						qtypes = append(qtypes, q)

						break
					}

					if qi == 110 {
						return nil, fmt.Errorf("unknown DNS query type: %s", qt)
					}
				}
			}

			return NewQTypeSet(qtypes...), nil
		}

		return data, nil
	}
}

func upstreamTypeHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{}) (interface{}, error) {
		if f.Kind() == reflect.String &&
			t == reflect.TypeOf(Upstream{}) {
			result, err := ParseUpstream(data.(string))

			return result, err
		}

		return data, nil
	}
}

func durationTypeHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{}) (interface{}, error) {
		if f.Kind() == reflect.String &&
			t == reflect.TypeOf(Duration(0)) {
			input := data.(string)
			if minutes, err := strconv.Atoi(input); err == nil {
				// duration is defined as number without unit
				// use minutes to ensure back compatibility
				result := Duration(time.Duration(minutes) * time.Minute)

				return result, nil
			}

			duration, err := time.ParseDuration(input)
			if err == nil {
				result := Duration(duration)

				return result, nil
			}
		}

		return data, nil
	}
}
