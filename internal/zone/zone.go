// Package zone holds the per-zone heating state: the control algorithm, pump
// dwell-time protection and the safety interlocks evaluated on every tick.
package zone

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/homehub/heating-controller/internal/controller"
)

// Defaults applied when the per-zone config leaves a threshold unset.
const (
	DefaultPumpMinOn     = 10 * time.Minute
	DefaultPumpMinOff    = 10 * time.Minute
	DefaultSensorTimeout = 20 * time.Minute
	DefaultMaxRuntime    = 6 * time.Hour
	DefaultHistoryLength = 120
)

// WeatherComp shifts the scheduled setpoint against the outside temperature.
type WeatherComp struct {
	Curve         float64
	ReferenceTemp float64
	MinSetpoint   float64
	MaxSetpoint   float64
}

// Config is the static per-zone configuration resolved at startup.
type Config struct {
	Name            string
	DefaultSetpoint float64

	ControllerType string // "pid" or "onoff"
	Kp, Ki, Kd     float64
	Hysteresis     float64

	PumpMinOn     time.Duration
	PumpMinOff    time.Duration
	SensorTimeout time.Duration
	MaxRuntime    time.Duration

	HistoryLength       int
	WindowThreshold1Min float64 // °C/min drop over the last minute
	WindowThreshold2Min float64 // °C/min drop over the last two minutes

	Weather *WeatherComp
}

type tempSample struct {
	temp float64
	at   time.Time
}

// Zone is the mutable state for one heating area. It is created once at
// startup and mutated only under the orchestrator's lock.
type Zone struct {
	Name string

	Controller controller.Controller

	setpoint    float64
	currentTemp *float64
	outsideTemp *float64

	pumpState     bool
	pumpDutyCycle float64
	pumpOnStart   *time.Time
	pumpLastOn    *time.Time
	pumpLastOff   *time.Time

	lastTempUpdate *time.Time
	tempHistory    []tempSample
	windowOpen     bool

	cfg Config

	now func() time.Time
}

func New(cfg Config) *Zone {
	if cfg.PumpMinOn <= 0 {
		cfg.PumpMinOn = DefaultPumpMinOn
	}
	if cfg.PumpMinOff <= 0 {
		cfg.PumpMinOff = DefaultPumpMinOff
	}
	if cfg.SensorTimeout <= 0 {
		cfg.SensorTimeout = DefaultSensorTimeout
	}
	if cfg.MaxRuntime <= 0 {
		cfg.MaxRuntime = DefaultMaxRuntime
	}
	if cfg.HistoryLength <= 0 {
		cfg.HistoryLength = DefaultHistoryLength
	}

	z := &Zone{
		Name:     cfg.Name,
		setpoint: cfg.DefaultSetpoint,
		cfg:      cfg,
		now:      time.Now,
	}

	switch cfg.ControllerType {
	case "onoff":
		hyst := cfg.Hysteresis
		if hyst <= 0 {
			hyst = 0.5
		}
		z.Controller = controller.NewOnOff(cfg.Name, hyst)
		log.Info().
			Str("zone", cfg.Name).
			Float64("hysteresis", hyst).
			Msg("Using ON/OFF controller")
	default:
		z.Controller = controller.NewPID(cfg.Name, cfg.Kp, cfg.Ki, cfg.Kd)
		log.Info().
			Str("zone", cfg.Name).
			Float64("kp", cfg.Kp).
			Float64("ki", cfg.Ki).
			Float64("kd", cfg.Kd).
			Msg("Using PID controller")
	}

	return z
}

// SetClock overrides the time source so tests can drive the dwell and
// staleness windows deterministically.
func (z *Zone) SetClock(now func() time.Time) {
	z.now = now
}

// UpdateTemperature records a fresh sensor reading.
func (z *Zone) UpdateTemperature(temp float64) {
	t := temp
	z.currentTemp = &t
	now := z.now()
	z.lastTempUpdate = &now

	z.tempHistory = append(z.tempHistory, tempSample{temp: temp, at: now})
	if len(z.tempHistory) > z.cfg.HistoryLength {
		z.tempHistory = z.tempHistory[len(z.tempHistory)-z.cfg.HistoryLength:]
	}
}

// UpdateOutsideTemperature records the shared outdoor reading.
func (z *Zone) UpdateOutsideTemperature(temp float64) {
	t := temp
	z.outsideTemp = &t
}

// UpdateSetpoint changes the target. A jump of more than 1°C resets the
// controller so stale integral and derivative history cannot spike the output.
func (z *Zone) UpdateSetpoint(setpoint float64) {
	if setpoint == z.setpoint {
		return
	}
	old := z.setpoint
	z.setpoint = setpoint
	log.Info().
		Str("zone", z.Name).
		Float64("from", old).
		Float64("to", setpoint).
		Msg("Setpoint changed")

	if diff := setpoint - old; diff > 1.0 || diff < -1.0 {
		z.Controller.Reset()
		log.Debug().Str("zone", z.Name).Msg("Controller reset after setpoint jump")
	}
}

// CalculateControlOutput runs the controller and returns a duty cycle in
// [0,1]. Without a temperature reading the duty is 0.
func (z *Zone) CalculateControlOutput() float64 {
	if z.currentTemp == nil {
		return 0
	}
	duty := z.Controller.CalculateOutput(*z.currentTemp, z.EffectiveControlSetpoint()) / 100.0
	z.pumpDutyCycle = duty
	return duty
}

// EffectiveControlSetpoint applies weather compensation when configured and
// an outside reading is available; otherwise the plain setpoint.
func (z *Zone) EffectiveControlSetpoint() float64 {
	if z.cfg.Weather == nil || z.outsideTemp == nil {
		return z.setpoint
	}
	return z.cfg.Weather.Compensate(z.setpoint, *z.outsideTemp)
}

// Compensate shifts the setpoint by -curve*(outside-reference), clamped to
// the configured band.
func (w *WeatherComp) Compensate(setpoint, outside float64) float64 {
	compensated := setpoint - w.Curve*(outside-w.ReferenceTemp)
	if compensated < w.MinSetpoint {
		return w.MinSetpoint
	}
	if compensated > w.MaxSetpoint {
		return w.MaxSetpoint
	}
	return compensated
}

// CanChangePumpState reports whether the pump may move to the desired state
// given the minimum dwell times, with the denial reason for diagnostics.
// First-ever transitions in each direction are always allowed.
func (z *Zone) CanChangePumpState(desired bool) (bool, string) {
	if desired == z.pumpState {
		return true, ""
	}

	now := z.now()

	if desired {
		if z.pumpLastOff == nil {
			return true, ""
		}
		if off := now.Sub(*z.pumpLastOff); off < z.cfg.PumpMinOff {
			return false, fmt.Sprintf("pump off for %s, minimum off time is %s", off.Round(time.Second), z.cfg.PumpMinOff)
		}
		return true, ""
	}

	if z.pumpLastOn == nil {
		return true, ""
	}
	if on := now.Sub(*z.pumpLastOn); on < z.cfg.PumpMinOn {
		return false, fmt.Sprintf("pump on for %s, minimum on time is %s", on.Round(time.Second), z.cfg.PumpMinOn)
	}
	return true, ""
}

// SetPumpState applies a pump transition and tracks the dwell timestamps.
// Callers must have passed CanChangePumpState, except for safety overrides.
func (z *Zone) SetPumpState(on bool) {
	if on == z.pumpState {
		return
	}

	now := z.now()
	z.pumpState = on
	if on {
		z.pumpLastOn = &now
		z.pumpOnStart = &now
	} else {
		z.pumpLastOff = &now
		z.pumpOnStart = nil
	}

	evt := log.Info().Str("zone", z.Name).Bool("pump", on)
	if z.currentTemp != nil {
		evt = evt.Float64("temp", *z.currentTemp).Float64("setpoint", z.setpoint)
	}
	evt.Msg("Pump state changed")
}

// SensorStale reports whether the last reading is older than the sensor
// timeout. Zones that have never reported are exempt (cold-start grace).
func (z *Zone) SensorStale() bool {
	if z.lastTempUpdate == nil {
		return false
	}
	return z.now().Sub(*z.lastTempUpdate) > z.cfg.SensorTimeout
}

// RuntimeExceeded reports whether the pump has been on continuously for
// longer than the maximum allowed runtime.
func (z *Zone) RuntimeExceeded() bool {
	if !z.pumpState || z.pumpOnStart == nil {
		return false
	}
	return z.now().Sub(*z.pumpOnStart) >= z.cfg.MaxRuntime
}

// MarkTemperatureUnknown drops the current reading. Used by the max-runtime
// interlock so heating stays off until a fresh reading arrives.
func (z *Zone) MarkTemperatureUnknown() {
	z.currentTemp = nil
}

func (z *Zone) Setpoint() float64          { return z.setpoint }
func (z *Zone) CurrentTemp() *float64      { return z.currentTemp }
func (z *Zone) OutsideTemp() *float64      { return z.outsideTemp }
func (z *Zone) PumpState() bool            { return z.pumpState }
func (z *Zone) PumpDutyCycle() float64     { return z.pumpDutyCycle }
func (z *Zone) PumpOnStart() *time.Time    { return z.pumpOnStart }
func (z *Zone) LastTempUpdate() *time.Time { return z.lastTempUpdate }
func (z *Zone) WindowOpen() bool           { return z.windowOpen }
func (z *Zone) SensorTimeout() time.Duration { return z.cfg.SensorTimeout }
func (z *Zone) MaxRuntime() time.Duration    { return z.cfg.MaxRuntime }
