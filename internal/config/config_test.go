package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalYAML = `
boiler_control_topic: zigbee2mqtt/boiler
zones:
  living_room:
    temperature_sensor_topic: zigbee2mqtt/temp_lr
    pump_control_topic: zigbee2mqtt/pump_lr
    default_setpoint: 20
`

func TestLoadFileYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
mqtt:
  broker_url: tcp://broker:1883
  client_id: heating_test
boiler_control_topic: zigbee2mqtt/boiler
outside_temperature_topic: zigbee2mqtt/outside
control_interval_seconds: 15
scheduling:
  vacation_setpoint: 8
zones:
  living_room:
    temperature_sensor_topic: zigbee2mqtt/temp_lr
    pump_control_topic: zigbee2mqtt/pump_lr
    default_setpoint: 20.5
    controller_type: pid
    pid_kp: 5
    pid_ki: 0.1
    schedule:
      weekdays:
        - {start: "06:00", end: "22:00", setpoint: 21}
      weekends:
        - {start: "08:00", end: "23:00", setpoint: 21.5}
    weather_compensation:
      curve: 0.1
      reference_outside_temp: 20
      min_setpoint: 16
      max_setpoint: 25
  bathroom:
    temperature_sensor_topic: zigbee2mqtt/temp_bath
    pump_control_topic: zigbee2mqtt/pump_bath
    default_setpoint: 22
    controller_type: onoff
    hysteresis: 1.0
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.BrokerURL)
	assert.Equal(t, "heating_test", cfg.MQTT.ClientID)
	assert.Equal(t, 15, cfg.ControlIntervalSeconds)
	assert.Equal(t, 8.0, cfg.Scheduling.VacationSetpoint)
	require.Len(t, cfg.Zones, 2)

	lr := cfg.Zones["living_room"]
	assert.Equal(t, 20.5, lr.DefaultSetpoint)
	assert.Equal(t, 5.0, lr.PidKp)
	require.NotNil(t, lr.Schedule)
	require.Len(t, lr.Schedule.Weekdays, 1)
	assert.Equal(t, "06:00", lr.Schedule.Weekdays[0].Start)
	require.NotNil(t, lr.WeatherCompensation)
	assert.Equal(t, 0.1, lr.WeatherCompensation.Curve)

	bath := cfg.Zones["bathroom"]
	assert.Equal(t, "onoff", bath.ControllerType)
	assert.Nil(t, bath.Schedule)
}

func TestLoadFileJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"boiler_control_topic": "zigbee2mqtt/boiler",
		"zones": {
			"living_room": {
				"temperature_sensor_topic": "zigbee2mqtt/temp_lr",
				"pump_control_topic": "zigbee2mqtt/pump_lr",
				"default_setpoint": 20
			}
		}
	}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Zones, 1)
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "config.yaml", minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.BrokerURL)
	assert.Equal(t, "heating_control", cfg.MQTT.ClientID)
	assert.Equal(t, 30, cfg.ControlIntervalSeconds)
	assert.Equal(t, 300, cfg.HeartbeatIntervalSeconds)
	assert.Equal(t, "boiler_heat_request/heartbeat", cfg.HeartbeatTopic)
	assert.Equal(t, 8090, cfg.API.Port)
	assert.Equal(t, 2.0, cfg.Scheduling.BoostDefaultDurationHours)
	assert.Equal(t, 1.0, cfg.Scheduling.ComfortOffsetCelsius)
	assert.Equal(t, -3.0, cfg.Scheduling.AwayOffsetCelsius)
	assert.Equal(t, 10.0, cfg.Scheduling.VacationSetpoint)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		errText string
	}{
		{"missing file", "", "", "read config"},
		{"bad extension", "config.toml", "x = 1", "unsupported config extension"},
		{"invalid yaml", "config.yaml", "zones: [unclosed", "parse yaml"},
		{"no zones", "config.yaml", "boiler_control_topic: a/b\nzones: {}\n", "no zones defined"},
		{"missing boiler topic", "config.yaml", `
zones:
  a:
    temperature_sensor_topic: t
    pump_control_topic: p
`, "boiler_control_topic is required"},
		{"missing sensor topic", "config.yaml", `
boiler_control_topic: a/b
zones:
  a:
    pump_control_topic: p
`, "temperature_sensor_topic missing"},
		{"unknown controller", "config.yaml", `
boiler_control_topic: a/b
zones:
  a:
    temperature_sensor_topic: t
    pump_control_topic: p
    controller_type: fuzzy
`, "controller_type"},
		{"bad schedule time", "config.yaml", `
boiler_control_topic: a/b
zones:
  a:
    temperature_sensor_topic: t
    pump_control_topic: p
    schedule:
      weekdays:
        - {start: "6am", end: "22:00", setpoint: 21}
`, "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.file != "" {
				path = writeConfig(t, tt.file, tt.content)
			}
			_, err := LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLogLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel("info"))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel("nonsense"))
}
