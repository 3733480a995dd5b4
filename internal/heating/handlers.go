package heating

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/homehub/heating-controller/internal/model"
	"github.com/homehub/heating-controller/internal/mqtt"
)

// Register wires the service's subscriptions into the transport client and
// arranges the initial state probes on every (re)connect. Must be called
// before the client connects.
func (s *Service) Register(c *mqtt.Client) {
	for name, zc := range s.zoneCfgs {
		zoneName := name
		c.Handle(zc.TemperatureSensorTopic, func(_ string, payload []byte) {
			s.HandleTemperature(zoneName, payload)
		})
		c.Handle("heating/"+name+"/setpoint/set", func(_ string, payload []byte) {
			s.HandleSetpointOverride(zoneName, payload)
		})
		c.Handle("heating/"+name+"/mode/set", func(_ string, payload []byte) {
			s.HandleModeChange(zoneName, payload)
		})
		c.Handle("heating/"+name+"/preset/set", func(_ string, payload []byte) {
			s.HandlePresetChange(zoneName, payload)
		})
	}

	if s.cfg.OutsideTemperatureTopic != "" {
		c.Handle(s.cfg.OutsideTemperatureTopic, func(_ string, payload []byte) {
			s.HandleOutsideTemperature(payload)
		})
	}

	c.OnConnect(func() { s.requestInitialStates(c) })
}

// requestInitialStates probes every device for its current state so the
// first tick after a (re)connect runs with complete data.
func (s *Service) requestInitialStates(pub mqtt.Publisher) {
	log.Info().Msg("Requesting initial device states")

	for _, zc := range s.zoneCfgs {
		pub.PublishString(zc.TemperatureSensorTopic+"/get", `{"temperature": ""}`, false)
		pub.PublishString(zc.PumpControlTopic+"/get", `{"state": ""}`, false)
	}
	if s.cfg.OutsideTemperatureTopic != "" {
		pub.PublishString(s.cfg.OutsideTemperatureTopic+"/get", `{"temperature": ""}`, false)
	}
	pub.PublishString(s.cfg.BoilerControlTopic+"/get", `{"state": ""}`, false)
}

// HandleTemperature processes a sensor reading for one zone. Malformed
// payloads are dropped and the prior reading is retained.
func (s *Service) HandleTemperature(zoneName string, payload []byte) {
	temp, ok := mqtt.ExtractTemperature(payload)
	if !ok {
		log.Warn().
			Str("zone", zoneName).
			Str("payload", string(payload)).
			Msg("Invalid temperature payload, dropping update")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[zoneName]
	if !ok {
		return
	}
	z.UpdateTemperature(temp)
	log.Debug().Str("zone", zoneName).Float64("temp", temp).Msg("Temperature update")
}

// HandleOutsideTemperature fans the shared outdoor reading out to all zones.
func (s *Service) HandleOutsideTemperature(payload []byte) {
	temp, ok := mqtt.ExtractTemperature(payload)
	if !ok {
		log.Warn().Str("payload", string(payload)).Msg("Invalid outside temperature payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, z := range s.zones {
		z.UpdateOutsideTemperature(temp)
	}
	log.Debug().Float64("temp", temp).Msg("Outside temperature update")
}

// HandleSetpointOverride is the legacy direct-setpoint path, kept for old
// dashboards. Mode changes are the supported interface.
func (s *Service) HandleSetpointOverride(zoneName string, payload []byte) {
	setpoint, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		var obj struct {
			Setpoint *float64 `json:"setpoint"`
		}
		if jsonErr := json.Unmarshal(payload, &obj); jsonErr != nil || obj.Setpoint == nil {
			log.Warn().
				Str("zone", zoneName).
				Str("payload", string(payload)).
				Msg("Invalid setpoint override payload")
			return
		}
		setpoint = *obj.Setpoint
	}

	log.Warn().
		Str("zone", zoneName).
		Float64("setpoint", setpoint).
		Msg("Legacy setpoint override received, prefer mode changes")

	s.mu.Lock()
	defer s.mu.Unlock()
	if z, ok := s.zones[zoneName]; ok {
		z.UpdateSetpoint(setpoint)
	}
}

type modeChange struct {
	Mode          string   `json:"mode"`
	Setpoint      *float64 `json:"setpoint"`
	DurationHours *float64 `json:"duration_hours"`
}

// HandleModeChange applies an operating-mode change: either a JSON object
// with optional setpoint and boost duration, or a bare mode string.
func (s *Service) HandleModeChange(zoneName string, payload []byte) {
	var mc modeChange
	if err := json.Unmarshal(payload, &mc); err != nil {
		mc = modeChange{Mode: strings.TrimSpace(string(payload))}
	}

	mode, err := model.ParseOperatingMode(mc.Mode)
	if err != nil {
		log.Warn().
			Str("zone", zoneName).
			Str("payload", string(payload)).
			Msg("Invalid mode change payload")
		return
	}

	var duration time.Duration
	if mc.DurationHours != nil {
		duration = time.Duration(*mc.DurationHours * float64(time.Hour))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sched.SetZoneMode(zoneName, mode, mc.Setpoint, duration); err != nil {
		log.Warn().Err(err).Str("zone", zoneName).Msg("Mode change rejected")
	}
}

// HandlePresetChange maps the climate-card preset vocabulary onto operating
// modes. Boost targets 2°C over the current effective setpoint for the
// default boost duration.
func (s *Service) HandlePresetChange(zoneName string, payload []byte) {
	preset, err := model.ParsePreset(strings.TrimSpace(strings.Trim(string(payload), `"`)))
	if err != nil {
		log.Warn().
			Str("zone", zoneName).
			Str("payload", string(payload)).
			Msg("Invalid preset payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.zones[zoneName]
	if !ok {
		return
	}

	var mode model.OperatingMode
	var setpoint *float64

	switch preset {
	case model.PresetNone:
		return
	case model.PresetHome:
		mode = model.ModeAuto
	case model.PresetComfort:
		mode = model.ModeComfort
	case model.PresetAway:
		mode = model.ModeAway
	case model.PresetEco:
		mode = model.ModeVacation
	case model.PresetBoost:
		mode = model.ModeBoost
		base, ok := s.sched.EffectiveSetpoint(zoneName, s.now())
		if !ok {
			base = z.Setpoint()
		}
		boosted := base + 2
		setpoint = &boosted
	}

	if err := s.sched.SetZoneMode(zoneName, mode, setpoint, 0); err != nil {
		log.Warn().Err(err).Str("zone", zoneName).Msg("Preset change rejected")
	}
}
