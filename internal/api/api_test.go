package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homehub/heating-controller/internal/config"
	"github.com/homehub/heating-controller/internal/heating"
)

type nopPublisher struct{}

func (nopPublisher) PublishString(topic, payload string, retain bool)     {}
func (nopPublisher) PublishJSON(topic string, v interface{}, retain bool) {}

func testServer() *Server {
	cfg := config.Config{
		BoilerControlTopic:       "zigbee2mqtt/boiler",
		HeartbeatTopic:           "boiler_heat_request/heartbeat",
		HeartbeatIntervalSeconds: 300,
		Zones: map[string]config.ZoneConfig{
			"living_room": {
				TemperatureSensorTopic: "zigbee2mqtt/temp_lr",
				PumpControlTopic:       "zigbee2mqtt/pump_lr",
				DefaultSetpoint:        20,
				PidKp:                  5,
				Schedule: &config.ScheduleConfig{
					Weekdays: []config.BlockConfig{{Start: "06:00", End: "22:00", Setpoint: 21}},
					Weekends: []config.BlockConfig{{Start: "06:00", End: "22:00", Setpoint: 21}},
				},
			},
		},
	}
	return NewServer(heating.New(cfg, nopPublisher{}, nil))
}

func TestGetZones(t *testing.T) {
	s := testServer()

	rec := httptest.NewRecorder()
	s.handleZones(rec, httptest.NewRequest(http.MethodGet, "/api/zones", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var zones []heating.ZoneStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &zones))
	require.Len(t, zones, 1)
	assert.Equal(t, "living_room", zones[0].Name)
	assert.Equal(t, 20.0, zones[0].Setpoint)
}

func TestGetZonesMethodNotAllowed(t *testing.T) {
	s := testServer()

	rec := httptest.NewRecorder()
	s.handleZones(rec, httptest.NewRequest(http.MethodPost, "/api/zones", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetSingleZone(t *testing.T) {
	s := testServer()

	rec := httptest.NewRecorder()
	s.handleZoneOperations(rec, httptest.NewRequest(http.MethodGet, "/api/zones/living_room", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var zone heating.ZoneStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &zone))
	assert.Equal(t, "living_room", zone.Name)

	rec = httptest.NewRecorder()
	s.handleZoneOperations(rec, httptest.NewRequest(http.MethodGet, "/api/zones/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutZoneMode(t *testing.T) {
	s := testServer()

	body := strings.NewReader(`{"mode":"manual","setpoint":23.0}`)
	rec := httptest.NewRecorder()
	s.handleZoneOperations(rec, httptest.NewRequest(http.MethodPut, "/api/zones/living_room/mode", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var zone heating.ZoneStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &zone))
	assert.Equal(t, "manual", string(zone.Mode))
}

func TestPutZoneModeErrors(t *testing.T) {
	s := testServer()

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"invalid body", "/api/zones/living_room/mode", "not json", http.StatusBadRequest},
		{"unknown mode", "/api/zones/living_room/mode", `{"mode":"defrost"}`, http.StatusBadRequest},
		{"unknown zone", "/api/zones/ghost/mode", `{"mode":"auto"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.handleZoneOperations(rec, httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestGetSystem(t *testing.T) {
	s := testServer()

	rec := httptest.NewRecorder()
	s.handleSystem(rec, httptest.NewRequest(http.MethodGet, "/api/system", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st heating.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.BoilerActive)
	assert.Zero(t, st.ZonesHeating)
}
