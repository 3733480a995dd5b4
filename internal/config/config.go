package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type MQTTConfig struct {
	BrokerURL string `json:"broker_url" yaml:"broker_url"`
	ClientID  string `json:"client_id" yaml:"client_id"`
	Username  string `json:"username" yaml:"username"`
	Password  string `json:"password" yaml:"password"`
	QoS       byte   `json:"qos" yaml:"qos"`
}

type APIConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

type DatadogConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	AgentAddr string   `json:"agent_addr" yaml:"agent_addr"`
	Namespace string   `json:"namespace" yaml:"namespace"`
	Tags      []string `json:"tags" yaml:"tags"`
}

type SchedulingConfig struct {
	BoostDefaultDurationHours float64 `json:"boost_default_duration_hours" yaml:"boost_default_duration_hours"`
	ComfortOffsetCelsius      float64 `json:"comfort_offset_celsius" yaml:"comfort_offset_celsius"`
	AwayOffsetCelsius         float64 `json:"away_offset_celsius" yaml:"away_offset_celsius"`
	VacationSetpoint          float64 `json:"vacation_setpoint" yaml:"vacation_setpoint"`
}

type BlockConfig struct {
	Start    string  `json:"start" yaml:"start"`
	End      string  `json:"end" yaml:"end"`
	Setpoint float64 `json:"setpoint" yaml:"setpoint"`
}

type ScheduleConfig struct {
	Weekdays []BlockConfig `json:"weekdays" yaml:"weekdays"`
	Weekends []BlockConfig `json:"weekends" yaml:"weekends"`
}

type WeatherCompConfig struct {
	Curve                float64 `json:"curve" yaml:"curve"`
	ReferenceOutsideTemp float64 `json:"reference_outside_temp" yaml:"reference_outside_temp"`
	MinSetpoint          float64 `json:"min_setpoint" yaml:"min_setpoint"`
	MaxSetpoint          float64 `json:"max_setpoint" yaml:"max_setpoint"`
}

type ZoneConfig struct {
	TemperatureSensorTopic string  `json:"temperature_sensor_topic" yaml:"temperature_sensor_topic"`
	PumpControlTopic       string  `json:"pump_control_topic" yaml:"pump_control_topic"`
	DefaultSetpoint        float64 `json:"default_setpoint" yaml:"default_setpoint"`

	ControllerType string  `json:"controller_type" yaml:"controller_type"`
	PidKp          float64 `json:"pid_kp" yaml:"pid_kp"`
	PidKi          float64 `json:"pid_ki" yaml:"pid_ki"`
	PidKd          float64 `json:"pid_kd" yaml:"pid_kd"`
	Hysteresis     float64 `json:"hysteresis" yaml:"hysteresis"`

	PumpMinOnMinutes     int     `json:"pump_min_on_minutes" yaml:"pump_min_on_minutes"`
	PumpMinOffMinutes    int     `json:"pump_min_off_minutes" yaml:"pump_min_off_minutes"`
	SensorTimeoutMinutes int     `json:"sensor_timeout_minutes" yaml:"sensor_timeout_minutes"`
	MaxRuntimeHours      float64 `json:"max_runtime_hours" yaml:"max_runtime_hours"`

	HistoryLength                int     `json:"history_length" yaml:"history_length"`
	WindowDetectionThreshold1Min float64 `json:"window_detection_threshold_1min" yaml:"window_detection_threshold_1min"`
	WindowDetectionThreshold2Min float64 `json:"window_detection_threshold_2min" yaml:"window_detection_threshold_2min"`

	WeatherCompensation *WeatherCompConfig `json:"weather_compensation" yaml:"weather_compensation"`
	Schedule            *ScheduleConfig    `json:"schedule" yaml:"schedule"`
}

type Config struct {
	ConfigFile string        `json:"-" yaml:"-"`
	LogFile    string        `json:"-" yaml:"-"`
	LogLevel   zerolog.Level `json:"-" yaml:"-"`

	MQTT    MQTTConfig    `json:"mqtt" yaml:"mqtt"`
	API     APIConfig     `json:"api" yaml:"api"`
	Datadog DatadogConfig `json:"datadog" yaml:"datadog"`

	NtfyTopic    string `json:"ntfy_topic" yaml:"ntfy_topic"`
	DatabasePath string `json:"database_path" yaml:"database_path"`

	ControlIntervalSeconds   int    `json:"control_interval_seconds" yaml:"control_interval_seconds"`
	HeartbeatIntervalSeconds int    `json:"heartbeat_interval_seconds" yaml:"heartbeat_interval_seconds"`
	HeartbeatTopic           string `json:"heartbeat_topic" yaml:"heartbeat_topic"`
	BoilerControlTopic       string `json:"boiler_control_topic" yaml:"boiler_control_topic"`
	OutsideTemperatureTopic  string `json:"outside_temperature_topic" yaml:"outside_temperature_topic"`

	Scheduling SchedulingConfig      `json:"scheduling" yaml:"scheduling"`
	Zones      map[string]ZoneConfig `json:"zones" yaml:"zones"`
}

// Load reads configuration from flags and the config file. Fatal
// configuration errors panic; the controller must not start half-configured.
func Load() Config {
	var configFile, logFile, logLevel string

	flag.StringVar(&configFile, "config-file", "heating_config.yaml", "Path to controller config file")
	flag.StringVar(&logFile, "log-file", "", "Path to log file (stderr only when empty)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := LoadFile(configFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}

	cfg.ConfigFile = configFile
	cfg.LogFile = logFile
	cfg.LogLevel = parseLogLevel(logLevel)
	return cfg
}

// LoadFile parses and validates a config file, YAML or JSON by extension.
func LoadFile(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension %q", ext)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.MQTT.BrokerURL == "" {
		cfg.MQTT.BrokerURL = "tcp://localhost:1883"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "heating_control"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "data/heating.db"
	}
	if cfg.ControlIntervalSeconds == 0 {
		cfg.ControlIntervalSeconds = 30
	}
	if cfg.HeartbeatIntervalSeconds == 0 {
		cfg.HeartbeatIntervalSeconds = 300
	}
	if cfg.HeartbeatTopic == "" {
		cfg.HeartbeatTopic = "boiler_heat_request/heartbeat"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8090
	}
	if cfg.Scheduling.BoostDefaultDurationHours == 0 {
		cfg.Scheduling.BoostDefaultDurationHours = 2
	}
	if cfg.Scheduling.ComfortOffsetCelsius == 0 {
		cfg.Scheduling.ComfortOffsetCelsius = 1
	}
	if cfg.Scheduling.AwayOffsetCelsius == 0 {
		cfg.Scheduling.AwayOffsetCelsius = -3
	}
	if cfg.Scheduling.VacationSetpoint == 0 {
		cfg.Scheduling.VacationSetpoint = 10
	}
}

func (cfg *Config) validate() error {
	if len(cfg.Zones) == 0 {
		return fmt.Errorf("no zones defined")
	}
	if cfg.BoilerControlTopic == "" {
		return fmt.Errorf("boiler_control_topic is required")
	}

	names := make([]string, 0, len(cfg.Zones))
	for name := range cfg.Zones {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	for _, name := range names {
		zc := cfg.Zones[name]
		if zc.TemperatureSensorTopic == "" {
			problems = append(problems, fmt.Sprintf("zones.%s.temperature_sensor_topic missing", name))
		}
		if zc.PumpControlTopic == "" {
			problems = append(problems, fmt.Sprintf("zones.%s.pump_control_topic missing", name))
		}
		switch zc.ControllerType {
		case "", "pid", "onoff":
		default:
			problems = append(problems, fmt.Sprintf("zones.%s.controller_type %q unknown", name, zc.ControllerType))
		}
		if zc.Schedule != nil {
			for _, b := range append(append([]BlockConfig{}, zc.Schedule.Weekdays...), zc.Schedule.Weekends...) {
				if _, err := time.Parse("15:04", b.Start); err != nil {
					problems = append(problems, fmt.Sprintf("zones.%s schedule start %q invalid", name, b.Start))
				}
				if _, err := time.Parse("15:04", b.End); err != nil {
					problems = append(problems, fmt.Sprintf("zones.%s schedule end %q invalid", name, b.End))
				}
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
