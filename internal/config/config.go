package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/SceneBridge/internal/fbx"
)

// Config is the contents of scenebridge.yaml. Secrets never live here;
// see LoadSecrets. mqtt.broker, when set, takes precedence over MQTT_URL.
type Config struct {
	Version  int `yaml:"version"`
	Instance struct {
		ID string `yaml:"id"`
	} `yaml:"instance"`
	Runtime struct {
		SupportedVersion string `yaml:"supported_version"`
		MinVersion       string `yaml:"min_version"`
		BasePath         string `yaml:"base_path"`
		MaxLiveObjects   int    `yaml:"max_live_objects"`
	} `yaml:"runtime"`
	API struct {
		Port int `yaml:"port"`
	} `yaml:"api"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		ClientID    string `yaml:"client_id"`
		Username    string `yaml:"username"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Postgres struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"postgres"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Version: 1}
}

// Load reads and validates a scenebridge.yaml file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported scenebridge.yaml version: %d", cfg.Version)
	}
	if _, err := cfg.SupportedVersion(); err != nil {
		return nil, err
	}
	if _, err := cfg.MinVersion(); err != nil {
		return nil, err
	}
	if cfg.Runtime.MaxLiveObjects < 0 {
		return nil, fmt.Errorf("runtime.max_live_objects must not be negative")
	}

	return &cfg, nil
}

// InstanceID returns the instance id, defaulting to the host name.
func (c *Config) InstanceID() string {
	if c.Instance.ID != "" {
		return c.Instance.ID
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "scenebridge"
}

// APIPort returns the configured API port, defaulting to 8080 if not set.
func (c *Config) APIPort() int {
	if c.API.Port == 0 {
		return 8080
	}
	return c.API.Port
}

// MQTTClientID returns the MQTT client id, defaulting to "scenebridge".
func (c *Config) MQTTClientID() string {
	if c.MQTT.ClientID == "" {
		return "scenebridge"
	}
	return c.MQTT.ClientID
}

// TopicPrefix returns the MQTT topic prefix, defaulting to "scenebridge".
func (c *Config) TopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "scenebridge"
	}
	return c.MQTT.TopicPrefix
}

// SupportedVersion returns the newest FBX file version to accept.
func (c *Config) SupportedVersion() (fbx.Version, error) {
	return parseVersion("runtime.supported_version", c.Runtime.SupportedVersion, fbx.DefaultSupportedVersion)
}

// MinVersion returns the oldest FBX file version to accept.
func (c *Config) MinVersion() (fbx.Version, error) {
	return parseVersion("runtime.min_version", c.Runtime.MinVersion, fbx.DefaultMinVersion)
}

func parseVersion(key, s string, def fbx.Version) (fbx.Version, error) {
	if s == "" {
		return def, nil
	}
	v, err := fbx.ParseVersion(s)
	if err != nil {
		return fbx.Version{}, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
