package controller

import (
	"time"

	"github.com/rs/zerolog/log"
)

// minDT guards the first call and back-to-back calls against division by zero.
const minDT = 0.01

// PID is a proportional-integral-derivative controller with integral
// anti-windup. Output is clamped to the configured limits.
type PID struct {
	name string

	kp, ki, kd float64
	limits     [2]float64

	integral  float64
	lastError float64
	lastTime  time.Time

	now func() time.Time
}

func NewPID(name string, kp, ki, kd float64) *PID {
	p := &PID{
		name:   name,
		kp:     kp,
		ki:     ki,
		kd:     kd,
		limits: [2]float64{0, 100},
		now:    time.Now,
	}
	p.lastTime = p.now()
	return p
}

func (p *PID) CalculateOutput(currentTemp, setpoint float64) float64 {
	currentTime := p.now()
	dt := currentTime.Sub(p.lastTime).Seconds()
	if dt <= 0 {
		dt = minDT
	}

	// Positive error means the zone needs heat.
	err := setpoint - currentTemp

	pTerm := p.kp * err

	p.integral += err * dt

	// Anti-windup: bound the integral so a sustained error cannot push the
	// accumulated term past the output span.
	maxIntegral := 100.0
	if p.ki != 0 {
		maxIntegral = (p.limits[1] - p.limits[0]) / (2 * p.ki)
	}
	beforeClamp := p.integral
	p.integral = clamp(p.integral, -maxIntegral, maxIntegral)
	iTerm := p.ki * p.integral

	derivative := (err - p.lastError) / dt
	dTerm := p.kd * derivative

	raw := pTerm + iTerm + dTerm
	output := clamp(raw, p.limits[0], p.limits[1])

	log.Debug().
		Str("controller", p.name).
		Float64("setpoint", setpoint).
		Float64("current", currentTemp).
		Float64("error", err).
		Float64("p", pTerm).
		Float64("i", iTerm).
		Float64("d", dTerm).
		Float64("output", output).
		Bool("clamped", raw != output).
		Msg("PID update")

	if beforeClamp != p.integral {
		log.Debug().
			Str("controller", p.name).
			Float64("from", beforeClamp).
			Float64("to", p.integral).
			Msg("PID integral anti-windup active")
	}

	p.lastError = err
	p.lastTime = currentTime

	return output
}

func (p *PID) Reset() {
	p.integral = 0
	p.lastError = 0
	p.lastTime = p.now()
	log.Debug().Str("controller", p.name).Msg("PID reset")
}

func (p *PID) UpdateConfig(cfg Config) {
	if cfg.Kp != nil {
		p.kp = *cfg.Kp
	}
	if cfg.Ki != nil {
		p.ki = *cfg.Ki
	}
	if cfg.Kd != nil {
		p.kd = *cfg.Kd
	}
	if cfg.OutputLimits != nil {
		p.limits = *cfg.OutputLimits
	}
	log.Info().
		Str("controller", p.name).
		Float64("kp", p.kp).
		Float64("ki", p.ki).
		Float64("kd", p.kd).
		Msg("PID config updated")
}

// Integral exposes the accumulated integral term for diagnostics.
func (p *PID) Integral() float64 {
	return p.integral
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
