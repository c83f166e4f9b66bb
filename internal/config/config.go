package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDBridge  string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string

	// Topics
	TopicGPS     string
	TopicConfig  string
	TopicTemp    string
	TopicLog     string
	TopicCommand string

	// Beacon serial link
	BeaconSerialPort string
	BeaconBaudRate   int

	// Session
	NMEAVerifyChecksum     bool
	RequestConfigOnConnect bool

	// Web Server
	WebServerPort int

	// Display
	DisplayUpdateInterval int    // milliseconds
	DisplayContent        string // what to show: "gps" or "beacon"
}

// Display content selectors.
const (
	DisplayGPS    = "gps"
	DisplayBeacon = "beacon"
)

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Defaults returns a Config with every optional key set.
func Defaults() *Config {
	return &Config{
		MQTTClientIDBridge:     "beacon-bridge",
		MQTTClientIDConsole:    "beacon-console",
		MQTTClientIDWeb:        "beacon-web",
		MQTTClientIDDisplay:    "beacon-display",
		TopicGPS:               "beacon/gps",
		TopicConfig:            "beacon/config",
		TopicTemp:              "beacon/temp",
		TopicLog:               "beacon/log",
		TopicCommand:           "beacon/cmd",
		BeaconBaudRate:         115200,
		RequestConfigOnConnect: true,
		WebServerPort:          8080,
		DisplayUpdateInterval:  500,
		DisplayContent:         DisplayGPS,
	}
}

// Keys lists every configuration key.
var Keys = []string{
	"MQTT_BROKER",
	"MQTT_CLIENT_ID_BRIDGE",
	"MQTT_CLIENT_ID_CONSOLE",
	"MQTT_CLIENT_ID_WEB",
	"MQTT_CLIENT_ID_DISPLAY",
	"TOPIC_GPS",
	"TOPIC_CONFIG",
	"TOPIC_TEMP",
	"TOPIC_LOG",
	"TOPIC_COMMAND",
	"BEACON_SERIAL_PORT",
	"BEACON_BAUD_RATE",
	"NMEA_VERIFY_CHECKSUM",
	"REQUEST_CONFIG_ON_CONNECT",
	"WEB_SERVER_PORT",
	"DISPLAY_UPDATE_INTERVAL",
	"DISPLAY_CONTENT",
}

// Load reads the configuration file and returns a Config struct.
// Files ending in .yaml or .yml hold a flat mapping of the same keys;
// anything else is read as KEY=VALUE lines.
//
// Values are then overridden, in increasing priority, by a .env file in the
// same directory and by the process environment.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = cfg.loadYAML(file)
	default:
		err = cfg.loadKeyValue(file)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.applyOverrides(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, err
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadKeyValue(file *os.File) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func (c *Config) loadYAML(file *os.File) error {
	var raw map[string]yaml.Node
	if err := yaml.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("error reading yaml config: %w", err)
	}

	// Sorted so the first reported error is stable.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		node := raw[key]
		if node.Kind != yaml.ScalarNode {
			return fmt.Errorf("config key %q: expected a scalar value", key)
		}
		if err := c.setValue(key, node.Value); err != nil {
			return fmt.Errorf("config line %d: %w", node.Line, err)
		}
	}
	return nil
}

func (c *Config) applyOverrides(envFile string) error {
	fileVals := map[string]string{}
	if _, err := os.Stat(envFile); err == nil {
		fileVals, err = godotenv.Read(envFile)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", envFile, err)
		}
	}

	for _, key := range Keys {
		value, ok := os.LookupEnv(key)
		source := "environment"
		if !ok {
			value, ok = fileVals[key]
			source = envFile
		}
		if !ok {
			continue
		}
		if err := c.setValue(key, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_BRIDGE":
		c.MQTTClientIDBridge = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_CONFIG":
		c.TopicConfig = value
	case "TOPIC_TEMP":
		c.TopicTemp = value
	case "TOPIC_LOG":
		c.TopicLog = value
	case "TOPIC_COMMAND":
		c.TopicCommand = value

	// Beacon
	case "BEACON_SERIAL_PORT":
		c.BeaconSerialPort = value
	case "BEACON_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BEACON_BAUD_RATE %q: %w", value, err)
		}
		if rate <= 0 {
			return fmt.Errorf("BEACON_BAUD_RATE must be positive, got %d", rate)
		}
		c.BeaconBaudRate = rate

	// Session
	case "NMEA_VERIFY_CHECKSUM":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid NMEA_VERIFY_CHECKSUM %q: %w", value, err)
		}
		c.NMEAVerifyChecksum = v
	case "REQUEST_CONFIG_ON_CONNECT":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_CONFIG_ON_CONNECT %q: %w", value, err)
		}
		c.RequestConfigOnConnect = v

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port <= 0 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", port)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		if interval <= 0 {
			return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", interval)
		}
		c.DisplayUpdateInterval = interval
	case "DISPLAY_CONTENT":
		switch value {
		case DisplayGPS, DisplayBeacon:
			c.DisplayContent = value
		default:
			return fmt.Errorf("DISPLAY_CONTENT must be %q or %q, got %q", DisplayGPS, DisplayBeacon, value)
		}

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.BeaconSerialPort == "" {
		return fmt.Errorf("BEACON_SERIAL_PORT is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
