package cli

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agenticwork/maestro/pkg/errors"
	"github.com/agenticwork/maestro/pkg/orchestration"
)

// LoadConfig reads a routing config from the given YAML file, falling back
// to the engine defaults when the path is empty. The config is validated
// before being returned.
func LoadConfig(path string) (*orchestration.MultiModelConfig, error) {
	if path == "" {
		return orchestration.DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{
			Key:    "config",
			Reason: "failed to read config file",
			Cause:  err,
		}
	}

	var cfg orchestration.MultiModelConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &errors.ConfigError{
			Key:    "config",
			Reason: "failed to parse config file",
			Cause:  err,
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
