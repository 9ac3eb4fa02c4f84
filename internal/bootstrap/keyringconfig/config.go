// Package keyringconfig loads the keyring configuration: which derivation
// paths to register at startup and where the encrypted registry state lives.
package keyringconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Registry  RegistryConfig
	Bootstrap BootstrapConfig
}

type RegistryConfig struct {
	StatePath   string
	StateSecret string
}

type BootstrapConfig struct {
	// Paths are registered at startup; Activate names the subset made
	// current for their (curve, role) pair.
	Paths    []string
	Activate []string
}

type fileConfig struct {
	Registry struct {
		StatePath   string `yaml:"statePath"`
		StateSecret string `yaml:"stateSecret"`
	} `yaml:"registry"`
	Bootstrap struct {
		Paths    []string `yaml:"paths"`
		Activate []string `yaml:"activate"`
	} `yaml:"bootstrap"`
}

func DefaultConfig() Config {
	paths := []string{
		"ik:v1:ed25519/0/identity/0",
		"ik:v1:x25519/0/encryption/0",
	}
	return Config{
		Bootstrap: BootstrapConfig{
			Paths:    paths,
			Activate: append([]string(nil), paths...),
		},
	}
}

// LoadFromPath reads a yaml config, falling back through default candidate
// locations and then to built-in defaults. Environment variables win over
// the file.
func LoadFromPath(configPath string) Config {
	cfg := DefaultConfig()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/keyring.yaml",
			"keyring.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		merge(&cfg, parsed)
		break
	}

	applyEnvOverrides(&cfg)
	return cfg
}

func merge(dst *Config, src fileConfig) {
	if src.Registry.StatePath != "" {
		dst.Registry.StatePath = src.Registry.StatePath
	}
	if src.Registry.StateSecret != "" {
		dst.Registry.StateSecret = src.Registry.StateSecret
	}
	if len(src.Bootstrap.Paths) > 0 {
		dst.Bootstrap.Paths = append([]string(nil), src.Bootstrap.Paths...)
	}
	if len(src.Bootstrap.Activate) > 0 {
		dst.Bootstrap.Activate = append([]string(nil), src.Bootstrap.Activate...)
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IK_REGISTRY_STATE_PATH"); v != "" {
		cfg.Registry.StatePath = v
	}
	if v := os.Getenv("IK_REGISTRY_STATE_SECRET"); v != "" {
		cfg.Registry.StateSecret = v
	}
}
