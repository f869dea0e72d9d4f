// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/landscape-engine/internal/secrets"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// secretKeys are config keys that are never written as defaults but can
// still come from the environment.
var secretKeys = []string{
	"ai.api_key",
	"sources.trials.api_key",
	"sources.literature.api_key",
	"sources.regulatory.api_key",
	"server.redis_password",
}

// registerDefaults registers every leaf of def as a viper default so that
// AutomaticEnv can override keys that appear in no config file.
func registerDefaults(v *viper.Viper, def types.Config) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parsing default config: %w", err)
	}
	setDefaults(v, "", tree)
	for _, k := range secretKeys {
		_ = v.BindEnv(k)
	}
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig decodes viper settings over the defaults, fills API keys
// from .secrets/ and validates the result.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, types.ConfigError("decoding configuration: %v", err)
	}

	cfg.AI.APIKey = secretDefault(secrets.AnthropicAPIKey, cfg.AI.APIKey)
	cfg.Sources.Literature.APIKey = secretDefault(secrets.NCBIAPIKey, cfg.Sources.Literature.APIKey)
	cfg.Sources.Regulatory.APIKey = secretDefault(secrets.OpenFDAAPIKey, cfg.Sources.Regulatory.APIKey)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
