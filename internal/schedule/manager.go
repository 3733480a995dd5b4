package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/homehub/heating-controller/internal/model"
)

// Settings holds the global scheduling parameters shared by all zones.
type Settings struct {
	ComfortOffset        float64
	AwayOffset           float64
	VacationSetpoint     float64
	DefaultBoostDuration time.Duration
}

type zoneEntry struct {
	schedule    *Schedule
	hasSchedule bool
	modes       *ModeManager
}

// Manager owns one Schedule and one ModeManager per configured zone. It is
// the single entry point the orchestrator uses to resolve setpoints and
// change modes. Callers serialize access; see the orchestrator's tick lock.
type Manager struct {
	settings Settings
	store    Store
	zones    map[string]*zoneEntry
}

func NewManager(settings Settings, store Store) *Manager {
	if settings.DefaultBoostDuration <= 0 {
		settings.DefaultBoostDuration = 2 * time.Hour
	}
	return &Manager{
		settings: settings,
		store:    store,
		zones:    make(map[string]*zoneEntry),
	}
}

// AddZone registers a zone. sched may be nil for zones without a weekly
// schedule; those default to Manual mode and only support Manual, Boost and
// Vacation.
func (m *Manager) AddZone(name string, sched *Schedule) {
	defaultMode := model.ModeAuto
	hasSchedule := sched != nil
	if !hasSchedule {
		defaultMode = model.ModeManual
		sched = &Schedule{}
		log.Warn().Str("zone", name).Msg("No schedule configured, defaulting to manual mode")
	}

	m.zones[name] = &zoneEntry{
		schedule:    sched,
		hasSchedule: hasSchedule,
		modes:       NewModeManager(name, defaultMode, m.store),
	}

	log.Info().
		Str("zone", name).
		Bool("has_schedule", hasSchedule).
		Int("weekday_blocks", len(sched.WeekdayBlocks)).
		Int("weekend_blocks", len(sched.WeekendBlocks)).
		Msg("Zone schedule registered")
}

// EffectiveSetpoint resolves the setpoint for a zone at the given instant.
// The second return is false when heating is disabled for the zone.
func (m *Manager) EffectiveSetpoint(zone string, now time.Time) (float64, bool) {
	entry, ok := m.zones[zone]
	if !ok {
		log.Warn().Str("zone", zone).Msg("No mode manager configured for zone")
		return 0, false
	}

	if !entry.hasSchedule {
		switch entry.modes.Mode() {
		case model.ModeManual, model.ModeBoost, model.ModeVacation:
			// Supported without a schedule; resolved below.
		default:
			log.Warn().
				Str("zone", zone).
				Str("mode", string(entry.modes.Mode())).
				Msg("Mode requires a schedule but none is configured")
			return 0, false
		}
	}

	return entry.modes.EffectiveSetpoint(
		entry.schedule,
		now,
		m.settings.ComfortOffset,
		m.settings.AwayOffset,
		m.settings.VacationSetpoint,
	)
}

// SetZoneMode changes the operating mode for a zone. boostDuration of zero
// selects the configured default.
func (m *Manager) SetZoneMode(zone string, mode model.OperatingMode, manualSetpoint *float64, boostDuration time.Duration) error {
	entry, ok := m.zones[zone]
	if !ok {
		return fmt.Errorf("no mode manager for zone %q", zone)
	}
	if boostDuration <= 0 {
		boostDuration = m.settings.DefaultBoostDuration
	}
	entry.modes.SetMode(mode, manualSetpoint, boostDuration)
	return nil
}

// ZoneMode returns the current operating mode for a zone.
func (m *Manager) ZoneMode(zone string) (model.OperatingMode, bool) {
	entry, ok := m.zones[zone]
	if !ok {
		return "", false
	}
	return entry.modes.Mode(), true
}

// State is the mode snapshot published per zone.
type State struct {
	Mode              model.OperatingMode `json:"mode"`
	EffectiveSetpoint *float64            `json:"effective_setpoint"`
	ManualSetpoint    *float64            `json:"manual_setpoint"`
	BoostExpiresAt    *time.Time          `json:"boost_expires_at"`
	ScheduleActive    bool                `json:"schedule_active"`
}

// ZoneState returns the full mode state for a zone at the given instant.
func (m *Manager) ZoneState(zone string, now time.Time) (State, bool) {
	entry, ok := m.zones[zone]
	if !ok {
		return State{}, false
	}

	var effective *float64
	if sp, ok := m.EffectiveSetpoint(zone, now); ok {
		effective = &sp
	}

	mode := entry.modes.Mode()
	return State{
		Mode:              mode,
		EffectiveSetpoint: effective,
		ManualSetpoint:    entry.modes.ManualSetpoint(),
		BoostExpiresAt:    entry.modes.BoostExpiresAt(),
		ScheduleActive:    mode == model.ModeAuto || mode == model.ModeComfort || mode == model.ModeAway,
	}, true
}

// Zones lists registered zone names in stable order.
func (m *Manager) Zones() []string {
	names := make([]string, 0, len(m.zones))
	for name := range m.zones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultBoostDuration exposes the configured default boost duration.
func (m *Manager) DefaultBoostDuration() time.Duration {
	return m.settings.DefaultBoostDuration
}
