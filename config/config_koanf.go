package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/mitchellh/mapstructure"
)

// LoadConfig reads the configuration file (or directory of files) at path, applies
// environment variable overrides and defaults, and returns the resulting Config.
// If mandatory is true, a missing path is an error; otherwise defaults are used.
func LoadConfig(path string, mandatory bool) (*Config, error) {
	k := koanf.New(".")

	info, err := os.Stat(path)

	switch {
	case err != nil && os.IsNotExist(err):
		if mandatory {
			return nil, fmt.Errorf("config path '%s' does not exist: %w", path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("can't access config path '%s': %w", path, err)
	case info.IsDir():
		if err := loadDir(path, k); err != nil {
			return nil, fmt.Errorf("can't read config directory '%s': %w", path, err)
		}
	default:
		if err := loadFile(k, path); err != nil {
			return nil, fmt.Errorf("can't read config file '%s': %w", path, err)
		}
	}

	if err := loadEnvironment(k); err != nil {
		return nil, fmt.Errorf("can't read environment configuration: %w", err)
	}

	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("can't apply default configuration: %w", err)
	}

	if err := unmarshalKoanf(k, &cfg); err != nil {
		return nil, fmt.Errorf("can't unmarshal configuration: %w", err)
	}

	return &cfg, nil
}

// NewConfig is a convenience wrapper around LoadConfig that panics on error,
// used by callers that can't otherwise propagate a startup failure.
func NewConfig(path string, mandatory bool) Config {
	cfg, err := LoadConfig(path, mandatory)
	if err != nil {
		panic(err)
	}

	return *cfg
}

func loadEnvironment(k *koanf.Koanf) error {
	return k.Load(env.Provider(EnvConfigPrefix, "_", func(s string) string {
		return strings.TrimPrefix(s, EnvConfigPrefix)
	}), nil)
}

func loadFile(k *koanf.Koanf, path string) error {
	return k.Load(file.Provider(path), yaml.Parser())
}

func loadDir(path string, k *koanf.Koanf) error {
	err := filepath.WalkDir(path, func(filePath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == filePath {
			return nil
		}

		// Ignore non YAML files
		if !strings.HasSuffix(filePath, ".yml") && !strings.HasSuffix(filePath, ".yaml") {
			return nil
		}

		isRegular, err := isRegularFile(filePath)
		if err != nil {
			return err
		}

		// Ignore non regular files (directories, sockets, etc.)
		if !isRegular {
			return nil
		}

		if err := loadFile(k, filePath); err != nil {
			return err
		}

		return nil
	})

	return err
}

func isRegularFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	return info.Mode().IsRegular(), nil
}

func unmarshalKoanf(k *koanf.Koanf, cfg *Config) error {
	err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       composeDecodeHookFunc(),
			Metadata:         nil,
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	})

	return err
}

func composeDecodeHookFunc() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapToSliceHookFunc(),
		upstreamTypeHookFunc(),
		durationTypeHookFunc(),
		textUnmarshallerHookFunc(),
		mapstructure.StringToIPHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		queryTypeHookFunc(),
		bootstrapConfigUnmarshallerHookFunc())
}

func mapToSliceHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() == reflect.Map {
			unboxed, ok := data.(map[string]interface{})
			if ok && unboxed != nil {
				res, ok := extract(unboxed)
				if ok {
					return res, nil
				}
			}
		}

		return data, nil
	}
}

func extract(in map[string]interface{}) ([]interface{}, bool) {
	res := make([]interface{}, 0, len(in))

	keys := make([]int, 0, len(in))

	intmap := make(map[int]interface{})

	for k, v := range in {
		ik, err := strconv.Atoi(k)
		if err != nil {
			return res, false
		}

		keys = append(keys, ik)

		intmap[ik] = v
	}

	sort.Ints(keys)

	for _, k := range keys {
		res = append(res, intmap[k])
	}

	return res, true
}
