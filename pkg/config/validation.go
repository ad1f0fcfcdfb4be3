package config

import (
	"fmt"
	"strings"
)

// validate validates the configuration
func validate(cfg *Config) error {
	// Validate serial config
	if cfg.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive")
	}
	if cfg.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("serial.read_timeout must be positive")
	}
	if cfg.Serial.MaxScanBytes < 4 {
		return fmt.Errorf("serial.max_scan_bytes must be at least 4")
	}

	// Validate radio config
	if cfg.Radio.MaxRetries <= 0 {
		return fmt.Errorf("radio.max_retries must be positive")
	}
	delays := map[string]int64{
		"radio.retry_delay":          int64(cfg.Radio.RetryDelay),
		"radio.settle_delay":         int64(cfg.Radio.SettleDelay),
		"radio.pre_write_wake_delay": int64(cfg.Radio.PreWriteWakeDelay),
		"radio.write_settle_delay":   int64(cfg.Radio.WriteSettleDelay),
		"radio.dmr_settle_delay":     int64(cfg.Radio.DMRSettleDelay),
		"radio.dmr_settle_step":      int64(cfg.Radio.DMRSettleStep),
	}
	for key, d := range delays {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}

	// Validate logging config
	switch strings.ToLower(cfg.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}

	// Validate database config
	if cfg.Database.Enabled && cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required when database is enabled")
	}

	// Validate MQTT config
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	// Validate metrics config
	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port <= 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 1 and 65535")
		}
	}

	return nil
}
