package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Serial   SerialConfig   `mapstructure:"serial"`
	Radio    RadioConfig    `mapstructure:"radio"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// SerialConfig holds the serial link settings
type SerialConfig struct {
	Port         string        `mapstructure:"port"` // e.g. /dev/ttyUSB0 or COM3
	Baud         int           `mapstructure:"baud"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	MaxScanBytes int           `mapstructure:"max_scan_bytes"` // header search limit
}

// RadioConfig holds retry and timing settings for channel operations
type RadioConfig struct {
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"` // multiplied by the attempt number
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	PreWriteWake      bool          `mapstructure:"pre_write_wake"`
	PreWriteWakeDelay time.Duration `mapstructure:"pre_write_wake_delay"`
	WriteSettleDelay  time.Duration `mapstructure:"write_settle_delay"`
	DMRSettleDelay    time.Duration `mapstructure:"dmr_settle_delay"`
	DMRSettleStep     time.Duration `mapstructure:"dmr_settle_step"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DatabaseConfig holds the snapshot archive settings
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// MQTTConfig holds MQTT client configuration
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	QoS         byte   `mapstructure:"qos"`
	Retained    bool   `mapstructure:"retained"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus metrics configuration
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Set defaults
	setDefaults()

	// Set config file
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("$HOME/.config/pmr171")
	}

	// Environment variables, e.g. PMR171_SERIAL_PORT
	viper.SetEnvPrefix("PMR171")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - that's also OK
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal to struct
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// BindFlags registers the command line overrides on fs and binds them so
// they take precedence over the file and environment.
func BindFlags(fs *pflag.FlagSet) error {
	fs.StringP("port", "p", "", "serial port the radio is connected to")
	fs.Int("baud", 0, "serial baud rate")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Int("max-retries", 0, "attempts per channel operation")

	bindings := map[string]string{
		"serial.port":       "port",
		"serial.baud":       "baud",
		"logging.level":     "log-level",
		"radio.max_retries": "max-retries",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Serial defaults
	viper.SetDefault("serial.port", "")
	viper.SetDefault("serial.baud", 115200)
	viper.SetDefault("serial.read_timeout", "1s")
	viper.SetDefault("serial.max_scan_bytes", 500)

	// Radio defaults, measured against real hardware
	viper.SetDefault("radio.max_retries", 10)
	viper.SetDefault("radio.retry_delay", "300ms")
	viper.SetDefault("radio.settle_delay", "500ms")
	viper.SetDefault("radio.pre_write_wake", true)
	viper.SetDefault("radio.pre_write_wake_delay", "150ms")
	viper.SetDefault("radio.write_settle_delay", "150ms")
	viper.SetDefault("radio.dmr_settle_delay", "150ms")
	viper.SetDefault("radio.dmr_settle_step", "100ms")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 7)
	viper.SetDefault("logging.compress", false)

	// Database defaults
	viper.SetDefault("database.enabled", true)
	viper.SetDefault("database.path", "pmr171.db")

	// MQTT defaults
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.topic_prefix", "pmr171")
	viper.SetDefault("mqtt.client_id", "pmr171-cps")
	viper.SetDefault("mqtt.qos", 0)
	viper.SetDefault("mqtt.retained", false)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.prometheus.enabled", true)
	viper.SetDefault("metrics.prometheus.port", 9171)
	viper.SetDefault("metrics.prometheus.path", "/metrics")
}
