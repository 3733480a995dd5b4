// Package controller implements the per-zone control algorithms that turn a
// temperature error into a heating output percentage.
package controller

// Controller converts (current temperature, setpoint) into a heating output
// in the 0-100 range. Implementations are stateful and owned by exactly one
// zone; they are never shared.
type Controller interface {
	// CalculateOutput returns the heating output as a percentage (0-100).
	CalculateOutput(currentTemp, setpoint float64) float64

	// Reset clears accumulated state. Call on startup, when a zone is
	// re-enabled, or on significant setpoint discontinuities.
	Reset()

	// UpdateConfig applies new tuning parameters without clearing state.
	UpdateConfig(cfg Config)
}

// Config carries tuning parameters for either controller variant. Fields not
// relevant to the receiving controller are ignored.
type Config struct {
	Kp           *float64
	Ki           *float64
	Kd           *float64
	OutputLimits *[2]float64
	Hysteresis   *float64
}
