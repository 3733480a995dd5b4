package heating

import (
	"time"

	"github.com/homehub/heating-controller/internal/model"
)

// ZoneStatus is a point-in-time snapshot of one zone for the REST API.
type ZoneStatus struct {
	Name           string              `json:"name"`
	Mode           model.OperatingMode `json:"mode"`
	Setpoint       float64             `json:"setpoint"`
	CurrentTemp    *float64            `json:"current_temp"`
	PumpState      bool                `json:"pump_state"`
	DutyCyclePct   float64             `json:"duty_cycle_pct"`
	WindowOpen     bool                `json:"window_open"`
	BoostExpiresAt *time.Time          `json:"boost_expires_at,omitempty"`
}

// SystemStatus is the aggregated controller snapshot.
type SystemStatus struct {
	BoilerActive        bool    `json:"boiler_active"`
	TotalRuntimeMinutes float64 `json:"total_boiler_runtime_minutes"`
	HeartbeatRunning    bool    `json:"heartbeat_running"`
	ZonesHeating        int     `json:"zones_heating"`
}

// ZoneNames lists configured zones in stable order.
func (s *Service) ZoneNames() []string {
	return s.sched.Zones()
}

// ZoneStatus snapshots one zone.
func (s *Service) ZoneStatus(name string) (ZoneStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.zones[name]
	if !ok {
		return ZoneStatus{}, false
	}

	st := ZoneStatus{
		Name:         name,
		Setpoint:     z.Setpoint(),
		CurrentTemp:  z.CurrentTemp(),
		PumpState:    z.PumpState(),
		DutyCyclePct: z.PumpDutyCycle() * 100,
		WindowOpen:   z.WindowOpen(),
	}
	if mode, ok := s.sched.ZoneMode(name); ok {
		st.Mode = mode
	}
	if ms, ok := s.sched.ZoneState(name, s.now()); ok {
		st.BoostExpiresAt = ms.BoostExpiresAt
	}
	return st, true
}

// SystemStatus snapshots the boiler aggregate.
func (s *Service) SystemStatus() SystemStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	heating := 0
	for _, z := range s.zones {
		if z.PumpState() {
			heating++
		}
	}
	return SystemStatus{
		BoilerActive:        s.boilerActive,
		TotalRuntimeMinutes: s.totalRuntimeMinutes,
		HeartbeatRunning:    s.hb.Running(),
		ZonesHeating:        heating,
	}
}

// SetZoneMode changes a zone's operating mode, as the transport handlers do.
func (s *Service) SetZoneMode(name string, mode model.OperatingMode, setpoint *float64, boostDuration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.SetZoneMode(name, mode, setpoint, boostDuration)
}
