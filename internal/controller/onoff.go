package controller

import (
	"github.com/rs/zerolog/log"
)

// OnOff is a hysteresis (bang-bang) controller. It turns on below
// setpoint-hysteresis, off above setpoint, and holds its state inside the
// dead-band between the two.
type OnOff struct {
	name       string
	hysteresis float64
	isHeating  bool
}

func NewOnOff(name string, hysteresis float64) *OnOff {
	return &OnOff{
		name:       name,
		hysteresis: hysteresis,
	}
}

func (o *OnOff) CalculateOutput(currentTemp, setpoint float64) float64 {
	turnOn := setpoint - o.hysteresis
	turnOff := setpoint

	previous := o.isHeating

	if currentTemp < turnOn {
		o.isHeating = true
	} else if currentTemp > turnOff {
		o.isHeating = false
	}
	// Inside the dead-band the previous state is retained.

	if o.isHeating != previous {
		log.Info().
			Str("controller", o.name).
			Bool("heating", o.isHeating).
			Float64("current", currentTemp).
			Float64("setpoint", setpoint).
			Float64("turn_on_below", turnOn).
			Float64("turn_off_above", turnOff).
			Msg("Hysteresis state changed")
	}

	if o.isHeating {
		return 100
	}
	return 0
}

func (o *OnOff) Reset() {
	o.isHeating = false
	log.Debug().Str("controller", o.name).Msg("Hysteresis reset, heating OFF")
}

func (o *OnOff) UpdateConfig(cfg Config) {
	if cfg.Hysteresis != nil {
		old := o.hysteresis
		o.hysteresis = *cfg.Hysteresis
		log.Info().
			Str("controller", o.name).
			Float64("from", old).
			Float64("to", o.hysteresis).
			Msg("Hysteresis width updated")
	}
}

// IsHeating reports the current hysteresis state.
func (o *OnOff) IsHeating() bool {
	return o.isHeating
}
