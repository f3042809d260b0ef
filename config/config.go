// Package config loads the YAML document describing the CAN device, the
// MQTT broker, and the statically configured device list. It is a
// collaborator of the core (see spec.md §1): the core never imports it,
// and it never imports the core.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BrokerConfig describes how to connect to the MQTT broker and how to
// namespace Home Assistant discovery topics.
type BrokerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	ClientID   string `yaml:"client_id"`
	HassPrefix string `yaml:"hass_prefix"`
	NodeID     string `yaml:"node_id"`
}

// DeviceConfig is one statically configured fixture: its bus identity,
// its capability, and enough metadata to advertise it to Home Assistant.
type DeviceConfig struct {
	Type   string `yaml:"type"`
	BusID  string `yaml:"busid"`
	Name   string `yaml:"name"`
	Unique string `yaml:"unique_id"`
}

// Config is the top-level document.
type Config struct {
	CAN struct {
		Device string `yaml:"dev"`
	} `yaml:"can"`
	MQTT    BrokerConfig   `yaml:"mqtt"`
	Devices []DeviceConfig `yaml:"devices"`
}

// Error wraps a config-loading failure with the path that produced it.
type Error struct {
	Path  string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Load reads and parses the YAML document at path. It fails closed: any
// read or parse error returns a nil Config, never a partially populated
// one.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Cause: err}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &Error{Path: path, Cause: err}
	}

	if err := cfg.validate(); err != nil {
		return nil, &Error{Path: path, Cause: err}
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.CAN.Device == "" {
		return fmt.Errorf("can.dev is required")
	}
	if c.MQTT.Host == "" {
		return fmt.Errorf("mqtt.host is required")
	}
	if c.MQTT.NodeID == "" {
		return fmt.Errorf("mqtt.node_id is required")
	}
	for i, d := range c.Devices {
		if d.BusID == "" {
			return fmt.Errorf("devices[%d].busid is required", i)
		}
		if len(d.BusID) != 32 {
			return fmt.Errorf("devices[%d].busid must be 32 hex characters, got %d", i, len(d.BusID))
		}
		for _, ch := range d.BusID {
			if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
				return fmt.Errorf("devices[%d].busid must be lowercase hex, got %q", i, ch)
			}
		}
	}
	return nil
}
