package heating

import (
	"strconv"

	"github.com/homehub/heating-controller/internal/config"
	"github.com/homehub/heating-controller/internal/datadog"
	"github.com/homehub/heating-controller/internal/model"
	"github.com/homehub/heating-controller/internal/notifications"
	"github.com/homehub/heating-controller/internal/zone"
)

// publishZoneState pushes the realized pump command and the climate topics
// for one zone. The pump command goes out every tick even when unchanged so
// downstream actuators resynchronize after missed messages.
func (s *Service) publishZoneState(name string, z *zone.Zone, zc config.ZoneConfig) {
	s.pub.PublishJSON(zc.PumpControlTopic+"/set", stateCommand(z.PumpState()), true)

	base := "heating/" + name

	if temp := z.CurrentTemp(); temp != nil {
		s.pub.PublishString(base+"/current_temp", strconv.FormatFloat(*temp, 'f', -1, 64), true)
	}

	s.pub.PublishString(base+"/climate/setpoint", strconv.FormatFloat(z.Setpoint(), 'f', -1, 64), true)

	// Mode is always "heat"; enablement is governed by the Off operating
	// mode, not by a separate HVAC-mode channel.
	s.pub.PublishString(base+"/climate/mode", "heat", true)

	action := "idle"
	if z.PumpState() {
		action = "heating"
	}
	s.pub.PublishString(base+"/climate/action", action, true)

	if mode, ok := s.sched.ZoneMode(name); ok {
		s.pub.PublishString(base+"/climate/preset", string(mode), true)
	}

	s.pub.PublishJSON(base+"/window_open", map[string]bool{"state": z.WindowOpen()}, true)

	zoneTag := "zone:" + name
	datadog.Gauge("zone.setpoint", z.Setpoint(), zoneTag)
	datadog.Gauge("zone.duty_cycle_pct", z.PumpDutyCycle()*100, zoneTag)
	datadog.Gauge("zone.pump", boolToFloat(z.PumpState()), zoneTag)
	if temp := z.CurrentTemp(); temp != nil {
		datadog.Gauge("zone.temperature", *temp, zoneTag, "component:sensor")
		datadog.Gauge("zone.temp_error", z.Setpoint()-*temp, zoneTag)
	}
}

func sendAlertNotification(alert model.Alert) {
	notifications.SendAlert(alert)
}
