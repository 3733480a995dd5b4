package model

import (
	"fmt"
	"time"
)

type OperatingMode string

const (
	ModeAuto     OperatingMode = "auto"     // follow weekly schedule
	ModeComfort  OperatingMode = "comfort"  // schedule with positive offset
	ModeManual   OperatingMode = "manual"   // fixed setpoint, no schedule
	ModeAway     OperatingMode = "away"     // schedule with negative offset
	ModeVacation OperatingMode = "vacation" // freeze protection setpoint
	ModeOff      OperatingMode = "off"      // heating disabled
	ModeBoost    OperatingMode = "boost"    // temporary override with expiry
)

func ParseOperatingMode(s string) (OperatingMode, error) {
	switch OperatingMode(s) {
	case ModeAuto, ModeComfort, ModeManual, ModeAway, ModeVacation, ModeOff, ModeBoost:
		return OperatingMode(s), nil
	}
	return "", fmt.Errorf("unknown operating mode %q", s)
}

// Preset is the small vocabulary exposed to climate cards. Each preset maps
// onto an operating mode; "none" is a no-op.
type Preset string

const (
	PresetNone    Preset = "none"
	PresetHome    Preset = "home"
	PresetComfort Preset = "comfort"
	PresetAway    Preset = "away"
	PresetEco     Preset = "eco"
	PresetBoost   Preset = "boost"
)

func ParsePreset(s string) (Preset, error) {
	switch Preset(s) {
	case PresetNone, PresetHome, PresetComfort, PresetAway, PresetEco, PresetBoost:
		return Preset(s), nil
	}
	return "", fmt.Errorf("unknown preset %q", s)
}

const (
	AlertStaleSensor     = "HEAT-CT-001"
	AlertRuntimeExceeded = "HEAT-CT-002"
)

// Alert is a transient critical condition published to the alert topics.
type Alert struct {
	AlertID   string    `json:"alert_id"`
	Zone      string    `json:"zone"`
	AlertType string    `json:"alert_type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ModeState is the persisted per-zone mode record.
type ModeState struct {
	Mode           OperatingMode
	ManualSetpoint *float64
	BoostExpiresAt *time.Time
	PreviousMode   *OperatingMode
	LastUpdated    time.Time
}
