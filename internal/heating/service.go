// Package heating runs the periodic control tick across all zones, applies
// the safety interlocks, aggregates zone activity into the boiler decision
// and drives the heartbeat watchdog.
package heating

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/homehub/heating-controller/db"
	"github.com/homehub/heating-controller/internal/config"
	"github.com/homehub/heating-controller/internal/datadog"
	"github.com/homehub/heating-controller/internal/model"
	"github.com/homehub/heating-controller/internal/mqtt"
	"github.com/homehub/heating-controller/internal/schedule"
	"github.com/homehub/heating-controller/internal/zone"
)

type Service struct {
	cfg   config.Config
	pub   mqtt.Publisher
	store *db.Store

	// mu serializes the control tick with inbound message handling. Every
	// zone and mode mutation happens under this lock.
	mu       sync.Mutex
	zones    map[string]*zone.Zone
	zoneCfgs map[string]config.ZoneConfig
	sched    *schedule.Manager

	boilerActive        bool
	boilerOnTime        *time.Time
	totalRuntimeMinutes float64

	// Alert edge tracking so a persistent condition alerts once, not every
	// tick.
	staleAlerted   map[string]bool
	runtimeAlerted map[string]bool

	hb  heartbeat
	now func() time.Time
}

// New builds the orchestrator from static configuration. store may be nil in
// tests; mode state is then not persisted.
func New(cfg config.Config, pub mqtt.Publisher, store *db.Store) *Service {
	s := &Service{
		cfg:            cfg,
		pub:            pub,
		store:          store,
		zones:          make(map[string]*zone.Zone),
		zoneCfgs:       make(map[string]config.ZoneConfig),
		staleAlerted:   make(map[string]bool),
		runtimeAlerted: make(map[string]bool),
		now:            time.Now,
	}

	var schedStore schedule.Store
	if store != nil {
		schedStore = store
	}
	s.sched = schedule.NewManager(schedule.Settings{
		ComfortOffset:        cfg.Scheduling.ComfortOffsetCelsius,
		AwayOffset:           cfg.Scheduling.AwayOffsetCelsius,
		VacationSetpoint:     cfg.Scheduling.VacationSetpoint,
		DefaultBoostDuration: time.Duration(cfg.Scheduling.BoostDefaultDurationHours * float64(time.Hour)),
	}, schedStore)

	for name, zc := range cfg.Zones {
		s.zones[name] = zone.New(zoneConfig(name, zc))
		s.zoneCfgs[name] = zc
		s.sched.AddZone(name, buildSchedule(zc.Schedule))
		log.Info().Str("zone", name).Msg("Initialized zone")
	}

	if store != nil {
		if minutes, err := store.BoilerRuntimeMinutes(); err != nil {
			log.Warn().Err(err).Msg("Failed to restore boiler runtime, starting at zero")
		} else {
			s.totalRuntimeMinutes = minutes
		}
	}

	return s
}

func zoneConfig(name string, zc config.ZoneConfig) zone.Config {
	c := zone.Config{
		Name:            name,
		DefaultSetpoint: zc.DefaultSetpoint,
		ControllerType:  zc.ControllerType,
		Kp:              zc.PidKp,
		Ki:              zc.PidKi,
		Kd:              zc.PidKd,
		Hysteresis:      zc.Hysteresis,

		PumpMinOn:     time.Duration(zc.PumpMinOnMinutes) * time.Minute,
		PumpMinOff:    time.Duration(zc.PumpMinOffMinutes) * time.Minute,
		SensorTimeout: time.Duration(zc.SensorTimeoutMinutes) * time.Minute,
		MaxRuntime:    time.Duration(zc.MaxRuntimeHours * float64(time.Hour)),

		HistoryLength:       zc.HistoryLength,
		WindowThreshold1Min: zc.WindowDetectionThreshold1Min,
		WindowThreshold2Min: zc.WindowDetectionThreshold2Min,
	}
	if w := zc.WeatherCompensation; w != nil {
		c.Weather = &zone.WeatherComp{
			Curve:         w.Curve,
			ReferenceTemp: w.ReferenceOutsideTemp,
			MinSetpoint:   w.MinSetpoint,
			MaxSetpoint:   w.MaxSetpoint,
		}
	}
	return c
}

func buildSchedule(sc *config.ScheduleConfig) *schedule.Schedule {
	if sc == nil {
		return nil
	}
	build := func(blocks []config.BlockConfig) []schedule.TimeBlock {
		out := make([]schedule.TimeBlock, 0, len(blocks))
		for _, b := range blocks {
			block, err := schedule.NewTimeBlock(b.Start, b.End, b.Setpoint)
			if err != nil {
				// Validated at config load; a failure here is a programming error.
				log.Error().Err(err).Msg("Skipping unparseable schedule block")
				continue
			}
			out = append(out, block)
		}
		return out
	}
	return &schedule.Schedule{
		WeekdayBlocks: build(sc.Weekdays),
		WeekendBlocks: build(sc.Weekends),
	}
}

// Run executes the control tick on the configured interval until the context
// is cancelled.
func (s *Service) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.ControlIntervalSeconds) * time.Second
	log.Info().
		Dur("interval", interval).
		Int("zones", len(s.zones)).
		Msg("Starting control loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.hb.Stop()
			log.Info().Msg("Control loop stopped")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one control pass over every zone, then the boiler aggregation.
// A failure in one zone never prevents the others, or the boiler decision,
// from being processed.
func (s *Service) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	anyActive := false
	heatingCount := 0

	for _, name := range s.sched.Zones() {
		s.tickZone(name)

		// The boiler decision uses the pump states realized during this
		// tick, not whatever later messages may change them to.
		if s.zones[name].PumpState() {
			anyActive = true
			heatingCount++
		}
	}

	s.setBoilerState(anyActive)

	s.pub.PublishJSON("heating/zones_heating_count", heatingCount, true)
	datadog.Gauge("boiler.zones_heating", float64(heatingCount))

	log.Info().
		Bool("boiler", s.boilerActive).
		Int("zones_heating", heatingCount).
		Dur("duration", s.now().Sub(start)).
		Msg("Control tick complete")
}

func (s *Service) tickZone(name string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("zone", name).Interface("panic", r).Msg("Zone tick failed, skipping zone for this tick")
		}
	}()

	z := s.zones[name]
	zc := s.zoneCfgs[name]

	// Safety interlocks run before any control computation and override
	// schedule, mode and controller output.
	if z.RuntimeExceeded() {
		if !s.runtimeAlerted[name] {
			s.runtimeAlerted[name] = true
			s.emitAlert(name, model.AlertRuntimeExceeded, "runtime_exceeded",
				"pump exceeded maximum continuous runtime of "+z.MaxRuntime().String()+", forcing off")
		}
		// Safety OFF bypasses the dwell-time check; protection only guards
		// against premature OFF, never against a safety OFF.
		z.SetPumpState(false)
		z.MarkTemperatureUnknown()
		s.publishZoneState(name, z, zc)
		return
	}
	s.runtimeAlerted[name] = false

	if z.SensorStale() {
		if !s.staleAlerted[name] {
			s.staleAlerted[name] = true
			s.emitAlert(name, model.AlertStaleSensor, "stale_sensor",
				"no temperature update for more than "+z.SensorTimeout().String()+", disabling zone")
		}
		z.MarkTemperatureUnknown()
		z.SetPumpState(false)
		s.publishZoneState(name, z, zc)
		return
	}
	s.staleAlerted[name] = false

	// Resolve the effective setpoint; no setpoint means heating is disabled
	// for this zone this tick (Off mode or unmatched schedule).
	setpoint, ok := s.sched.EffectiveSetpoint(name, s.now())
	if !ok {
		s.applyPumpState(z, false)
		s.publishZoneState(name, z, zc)
		return
	}
	z.UpdateSetpoint(setpoint)

	if z.CurrentTemp() == nil {
		log.Debug().Str("zone", name).Msg("No temperature data, skipping control")
		s.publishZoneState(name, z, zc)
		return
	}

	var duty float64
	if z.DetectWindowOpen() {
		duty = 0
	} else {
		duty = z.CalculateControlOutput()
	}

	desired := duty > 0
	s.applyPumpState(z, desired)
	s.publishZoneState(name, z, zc)
}

// applyPumpState moves the pump toward the desired state, subject to the
// minimum dwell times. A denied change is logged and retried next tick.
func (s *Service) applyPumpState(z *zone.Zone, desired bool) {
	if desired == z.PumpState() {
		return
	}
	if ok, reason := z.CanChangePumpState(desired); !ok {
		log.Info().
			Str("zone", z.Name).
			Bool("desired", desired).
			Str("reason", reason).
			Msg("Pump state change denied by protection")
		return
	}
	z.SetPumpState(desired)
}

func (s *Service) setBoilerState(active bool) {
	if active == s.boilerActive {
		if active && s.boilerOnTime != nil {
			log.Debug().
				Float64("runtime_min", s.now().Sub(*s.boilerOnTime).Minutes()).
				Msg("Boiler remains ON")
		}
		return
	}

	s.boilerActive = active
	s.pub.PublishJSON(s.cfg.BoilerControlTopic+"/set", stateCommand(active), true)
	s.pub.PublishJSON("heating/boiler_active", map[string]bool{"state": active}, true)
	datadog.Gauge("boiler.active", boolToFloat(active))

	if active {
		now := s.now()
		s.boilerOnTime = &now
		s.hb.Start(time.Duration(s.cfg.HeartbeatIntervalSeconds)*time.Second, s.sendHeartbeat)
		log.Info().
			Int("heartbeat_interval_s", s.cfg.HeartbeatIntervalSeconds).
			Msg("BOILER ON, heartbeat started")
		return
	}

	s.hb.Stop()
	var runtime float64
	if s.boilerOnTime != nil {
		runtime = s.now().Sub(*s.boilerOnTime).Minutes()
	}
	s.boilerOnTime = nil
	s.totalRuntimeMinutes += runtime

	if s.store != nil {
		if err := s.store.SetBoilerRuntimeMinutes(s.totalRuntimeMinutes); err != nil {
			log.Error().Err(err).Msg("Failed to persist boiler runtime")
		}
	}

	s.pub.PublishJSON("heating/boiler_runtime_minutes", s.totalRuntimeMinutes, true)
	datadog.Gauge("boiler.runtime_minutes", s.totalRuntimeMinutes)

	log.Info().
		Float64("runtime_min", runtime).
		Float64("total_runtime_min", s.totalRuntimeMinutes).
		Msg("BOILER OFF, heartbeat stopped")
}

func (s *Service) sendHeartbeat() {
	s.pub.PublishString(s.cfg.HeartbeatTopic, "ping", false)
	log.Debug().Msg("Heartbeat sent")
}

func (s *Service) emitAlert(zoneName, alertID, alertType, message string) {
	alert := model.Alert{
		AlertID:   alertID,
		Zone:      zoneName,
		AlertType: alertType,
		Message:   message,
		Timestamp: s.now(),
	}
	log.Error().
		Str("zone", zoneName).
		Str("alert_id", alertID).
		Str("alert_type", alertType).
		Msg(message)

	s.pub.PublishJSON("heating/alerts/"+zoneName+"/"+alertType, alert, false)
	datadog.Count("alerts.critical", 1, "zone:"+zoneName, "type:"+alertType)
	go sendAlertNotification(alert)
}

// BoilerActive reports the current aggregated boiler command.
func (s *Service) BoilerActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boilerActive
}

// TotalRuntimeMinutes reports the cumulative boiler runtime accumulator.
func (s *Service) TotalRuntimeMinutes() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalRuntimeMinutes
}

func stateCommand(on bool) map[string]string {
	if on {
		return map[string]string{"state": "ON"}
	}
	return map[string]string{"state": "OFF"}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
