// Package config loads the gapush.yaml file that describes one export job.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envRef matches ${NAME} and ${NAME:-fallback} references.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_]\w*)(:-([^}]*))?\}`)

// Load reads path, expands ${VAR} references, and decodes the YAML into a
// Config. Unknown keys are rejected so a typo surfaces at load time instead
// of as a silently disabled feature. An empty file yields a zero Config.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(strings.NewReader(ExpandEnv(string(raw))))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

// ExpandEnv substitutes every ${NAME} reference with the named environment
// variable. A reference may carry a fallback, ${NAME:-value}, used when the
// variable is unset or empty; without one the reference becomes the empty
// string, letting required secrets fail at downstream validation (e.g. the
// import client's access token check). Bare $NAME is left untouched.
func ExpandEnv(in string) string {
	return envRef.ReplaceAllStringFunc(in, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if v, ok := os.LookupEnv(m[1]); ok && v != "" {
			return v
		}
		return m[3]
	})
}
