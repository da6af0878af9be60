// Package config resolves the observer and relay's settings. Resolution
// order (highest precedence first): CLI flags, environment variables,
// an optional YAML convenience file, hardcoded defaults.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crystalball/observer/internal/publisher"
)

// ObserverConfig controls the local observer binary.
type ObserverConfig struct {
	Port         int           `yaml:"port"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Simulate     bool          `yaml:"simulate"`
	RelayURL     string        `yaml:"relay_url"`
	RelayToken   string        `yaml:"relay_token"`
	User         string        `yaml:"user"`
	Color        string        `yaml:"color"`
}

// RelayConfig controls the relay binary.
type RelayConfig struct {
	Port   int           `yaml:"port"`
	Token  string        `yaml:"token"`
	Expiry time.Duration `yaml:"expiry"`
}

func defaultObserverConfig() *ObserverConfig {
	return &ObserverConfig{
		Port:         3000,
		PollInterval: 2 * time.Second,
		Simulate:     false,
		Color:        "#87ceeb",
	}
}

func defaultRelayConfig() *RelayConfig {
	return &RelayConfig{
		Port:   3001,
		Expiry: 30 * time.Second,
	}
}

// DefaultObserverConfigPath returns the optional YAML convenience file's
// default location, ~/.crystal-ball/observer.yaml.
func DefaultObserverConfigPath() string {
	return filepath.Join(stateDir(), "observer.yaml")
}

// DefaultRelayConfigPath returns the optional YAML convenience file's
// default location, ~/.crystal-ball/relay.yaml.
func DefaultRelayConfigPath() string {
	return filepath.Join(stateDir(), "relay.yaml")
}

func stateDir() string {
	if dir := os.Getenv("CRYSTAL_BALL_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crystal-ball"
	}
	return filepath.Join(home, ".crystal-ball")
}

// LoadObserverConfig resolves an ObserverConfig starting from defaults,
// overlaying the optional YAML file at path (if it exists), then
// overlaying the environment variables SIMULATE and CRYSTAL_BALL_DIR's
// effect (the directory override itself is read directly by
// sidecar.DefaultDir; here SIMULATE=true forces the simulator backend
// regardless of what the YAML file says). CLI flags are applied by the
// caller afterward, since only it knows which flags were explicitly set.
func LoadObserverConfig(path string) (*ObserverConfig, error) {
	cfg := defaultObserverConfig()

	if err := overlayYAML(path, cfg); err != nil {
		return nil, err
	}

	if v := os.Getenv("SIMULATE"); v == "true" || v == "1" {
		cfg.Simulate = true
	}

	return cfg, nil
}

// LoadRelayConfig resolves a RelayConfig the same way LoadObserverConfig
// does, minus the SIMULATE override (the relay has no discovery backend).
func LoadRelayConfig(path string) (*RelayConfig, error) {
	cfg := defaultRelayConfig()
	if err := overlayYAML(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayYAML unmarshals the YAML file at path onto out, if it exists. A
// missing file is not an error — the convenience file is optional.
func overlayYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

// DefaultSharingPath returns ~/.crystal-ball/sharing.json, honoring
// CRYSTAL_BALL_DIR.
func DefaultSharingPath() string {
	return filepath.Join(stateDir(), "sharing.json")
}

// LoadSharing reads the sharing settings a user has configured for the
// publisher, defaulting to {enabled: false, excludedGroups: []} if the
// file is missing or malformed.
func LoadSharing(path string) publisher.Sharing {
	def := publisher.Sharing{Enabled: false, ExcludedGroups: []string{}}
	if path == "" {
		path = DefaultSharingPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return def
	}

	var sharing publisher.Sharing
	if err := json.Unmarshal(data, &sharing); err != nil {
		return def
	}
	return sharing
}
