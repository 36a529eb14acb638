package main

import (
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration. Exactly one of SerialPort or
// SimAddr selects the hand control transport.
type Config struct {
	Listen        string `yaml:"listen"`
	RotctldListen string `yaml:"rotctld_listen"`
	StaticDir     string `yaml:"static_dir"`

	SerialPort     string `yaml:"serial_port"`
	SimAddr        string `yaml:"sim_addr"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`

	// Pointing corrections in degrees, applied to the mount's frame.
	AzmOffset float64 `yaml:"azm_offset"`
	AltOffset float64 `yaml:"alt_offset"`

	Site  SiteConfig  `yaml:"site"`
	Power PowerConfig `yaml:"power"`
}

// SiteConfig locates the observer for ephemeris tracking.
type SiteConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	// Height is in meters above sea level.
	Height float64 `yaml:"height"`
	// Temperature in °C, Pressure in millibars.
	Temperature float64 `yaml:"temperature"`
	Pressure    float64 `yaml:"pressure"`
}

// PowerConfig points at the power distribution unit, either a local
// serial port or a modbushttp bridge URL.
type PowerConfig struct {
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8502",
		RotctldListen:  "127.0.0.1:4533",
		StaticDir:      "static",
		PollIntervalMS: 500,
		Site: SiteConfig{
			Latitude:    42.36,
			Longitude:   -71.092,
			Temperature: 10,
			Pressure:    1010,
		},
		Power: PowerConfig{Baud: 19200},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) pollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
