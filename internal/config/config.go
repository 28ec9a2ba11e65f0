// Package config loads the mqttui configuration file and watches it for
// changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything mqttui needs to connect and render.
type Config struct {
	Broker       string
	Port         int
	Topic        string
	ClientID     string
	Username     string
	Password     string
	HistoryLimit int
	LogFile      string
}

const (
	defaultConfigPath = "~/.config/mqttui/config.toml"
	defaultBroker     = "localhost"
	defaultPort       = 1883
	defaultTopic      = "#"

	// defaultHistoryLimit caps retained messages per topic.
	defaultHistoryLimit = 100
)

// Load locates and parses the config file, falling back to defaults
// when it is missing. An empty path means the default location.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Broker:       defaultBroker,
		Port:         defaultPort,
		Topic:        defaultTopic,
		HistoryLimit: defaultHistoryLimit,
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Broker       string `toml:"broker"`
		Port         int    `toml:"port"`
		Topic        string `toml:"topic"`
		ClientID     string `toml:"client_id"`
		Username     string `toml:"username"`
		Password     string `toml:"password"`
		HistoryLimit int    `toml:"history_limit"`
		LogFile      string `toml:"log_file"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if b := strings.TrimSpace(raw.Broker); b != "" {
		cfg.Broker = b
	}
	if raw.Port > 0 {
		cfg.Port = raw.Port
	}
	if t := strings.TrimSpace(raw.Topic); t != "" {
		cfg.Topic = t
	}
	cfg.ClientID = strings.TrimSpace(raw.ClientID)
	cfg.Username = raw.Username
	cfg.Password = raw.Password
	if raw.HistoryLimit > 0 {
		cfg.HistoryLimit = raw.HistoryLimit
	}
	cfg.LogFile = strings.TrimSpace(raw.LogFile)

	return cfg, nil
}

// Path resolves the config file location that Load would read for the
// given path, for use by the file watcher.
func Path(path string) (string, error) {
	return resolvePath(path)
}

// BrokerURL returns the broker address in the form the MQTT client
// dials.
func (c Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Broker, c.Port)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
