package schedule

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/homehub/heating-controller/internal/model"
)

// Store persists per-zone mode state across restarts.
type Store interface {
	SaveModeState(zone string, st model.ModeState) error
	LoadModeState(zone string) (*model.ModeState, error)
}

// ModeManager tracks the operating mode for one zone and derives the
// effective setpoint from the mode and the zone schedule. All methods must be
// called with external serialization; the manager holds no lock of its own.
type ModeManager struct {
	zoneName string

	currentMode    model.OperatingMode
	manualSetpoint *float64
	boostExpiresAt *time.Time
	previousMode   *model.OperatingMode

	store Store
	now   func() time.Time
}

func NewModeManager(zoneName string, defaultMode model.OperatingMode, store Store) *ModeManager {
	m := &ModeManager{
		zoneName:    zoneName,
		currentMode: defaultMode,
		store:       store,
		now:         time.Now,
	}
	m.loadState()
	return m
}

// EffectiveSetpoint resolves the setpoint for the given instant. The second
// return is false when heating is disabled (Off mode, missing manual
// setpoint, or no matching schedule block).
//
// Boost expiry is evaluated lazily here rather than with a timer. On expiry
// the mode reverts to Auto unconditionally; previousMode is recorded on
// entering Boost but intentionally not restored, matching the long-observed
// behavior of the deployed system.
func (m *ModeManager) EffectiveSetpoint(sched *Schedule, now time.Time, comfortOffset, awayOffset, vacationSetpoint float64) (float64, bool) {
	if m.currentMode == model.ModeBoost && m.boostExpiresAt != nil && !now.Before(*m.boostExpiresAt) {
		log.Info().
			Str("zone", m.zoneName).
			Msg("Boost mode expired, reverting to auto")
		m.currentMode = model.ModeAuto
		m.boostExpiresAt = nil
		m.manualSetpoint = nil
		m.persistState()
	}

	switch m.currentMode {
	case model.ModeOff:
		return 0, false

	case model.ModeManual, model.ModeBoost:
		if m.manualSetpoint == nil {
			log.Warn().
				Str("zone", m.zoneName).
				Str("mode", string(m.currentMode)).
				Msg("No manual setpoint configured for mode")
			return 0, false
		}
		return *m.manualSetpoint, true

	case model.ModeVacation:
		return vacationSetpoint, true

	case model.ModeComfort:
		if sp, ok := sched.Setpoint(now); ok {
			return sp + comfortOffset, true
		}
		return 0, false

	case model.ModeAway:
		if sp, ok := sched.Setpoint(now); ok {
			return sp + awayOffset, true
		}
		return 0, false

	case model.ModeAuto:
		return sched.Setpoint(now)
	}

	log.Error().
		Str("zone", m.zoneName).
		Str("mode", string(m.currentMode)).
		Msg("Unknown operating mode")
	return 0, false
}

// SetMode changes the operating mode. Boost records the previous mode and an
// expiry; Manual keeps only the manual setpoint; every other mode clears the
// manual setpoint and boost state. State is persisted after every change.
func (m *ModeManager) SetMode(mode model.OperatingMode, manualSetpoint *float64, boostDuration time.Duration) {
	switch mode {
	case model.ModeBoost:
		prev := m.currentMode
		m.previousMode = &prev
		expires := m.now().Add(boostDuration)
		m.boostExpiresAt = &expires
		m.manualSetpoint = manualSetpoint
		log.Info().
			Str("zone", m.zoneName).
			Time("expires", expires).
			Msg("Boost mode activated")

	case model.ModeManual:
		m.manualSetpoint = manualSetpoint
		m.boostExpiresAt = nil
		m.previousMode = nil
		log.Info().Str("zone", m.zoneName).Msg("Manual mode activated")

	default:
		m.manualSetpoint = nil
		m.boostExpiresAt = nil
		m.previousMode = nil
		log.Info().
			Str("zone", m.zoneName).
			Str("mode", string(mode)).
			Msg("Mode changed")
	}

	m.currentMode = mode
	m.persistState()
}

// Mode returns the current operating mode, without evaluating boost expiry.
func (m *ModeManager) Mode() model.OperatingMode {
	return m.currentMode
}

// ManualSetpoint returns the stored manual/boost setpoint if any.
func (m *ModeManager) ManualSetpoint() *float64 {
	return m.manualSetpoint
}

// BoostExpiresAt returns the boost expiry if boost is configured.
func (m *ModeManager) BoostExpiresAt() *time.Time {
	return m.boostExpiresAt
}

func (m *ModeManager) persistState() {
	if m.store == nil {
		return
	}
	st := model.ModeState{
		Mode:           m.currentMode,
		ManualSetpoint: m.manualSetpoint,
		BoostExpiresAt: m.boostExpiresAt,
		PreviousMode:   m.previousMode,
		LastUpdated:    m.now(),
	}
	if err := m.store.SaveModeState(m.zoneName, st); err != nil {
		// Not fatal: the next mutation writes the full record again.
		log.Error().Err(err).Str("zone", m.zoneName).Msg("Failed to persist mode state")
		return
	}
	log.Debug().Str("zone", m.zoneName).Msg("Mode state persisted")
}

func (m *ModeManager) loadState() {
	if m.store == nil {
		return
	}
	st, err := m.store.LoadModeState(m.zoneName)
	if err != nil {
		log.Error().Err(err).Str("zone", m.zoneName).Msg("Failed to load persisted mode state, using defaults")
		return
	}
	if st == nil {
		log.Info().Str("zone", m.zoneName).Msg("No persisted mode state, using defaults")
		return
	}
	m.currentMode = st.Mode
	m.manualSetpoint = st.ManualSetpoint
	m.boostExpiresAt = st.BoostExpiresAt
	m.previousMode = st.PreviousMode
	log.Info().
		Str("zone", m.zoneName).
		Str("mode", string(st.Mode)).
		Msg("Mode state restored from persistence")
}
