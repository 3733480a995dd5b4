package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homehub/heating-controller/internal/model"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	states map[string]model.ModeState
	saves  int
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]model.ModeState)}
}

func (s *memStore) SaveModeState(zone string, st model.ModeState) error {
	s.states[zone] = st
	s.saves++
	return nil
}

func (s *memStore) LoadModeState(zone string) (*model.ModeState, error) {
	st, ok := s.states[zone]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func testSchedule(t *testing.T) *Schedule {
	t.Helper()
	return &Schedule{
		WeekdayBlocks: []TimeBlock{mustBlock(t, "06:00", "22:00", 20.0)},
		WeekendBlocks: []TimeBlock{mustBlock(t, "08:00", "23:00", 21.0)},
	}
}

func TestEffectiveSetpointPerMode(t *testing.T) {
	sched := testSchedule(t)
	at := weekdayAt(10, 0)
	manual := 23.5

	tests := []struct {
		name     string
		mode     model.OperatingMode
		manual   *float64
		wantSP   float64
		wantHeat bool
	}{
		{"auto follows schedule", model.ModeAuto, nil, 20.0, true},
		{"comfort adds offset", model.ModeComfort, nil, 21.0, true},
		{"away subtracts offset", model.ModeAway, nil, 17.0, true},
		{"vacation fixed setpoint", model.ModeVacation, nil, 10.0, true},
		{"off disables heating", model.ModeOff, nil, 0, false},
		{"manual uses stored setpoint", model.ModeManual, &manual, 23.5, true},
		{"manual without setpoint disables", model.ModeManual, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModeManager("living_room", model.ModeAuto, nil)
			m.SetMode(tt.mode, tt.manual, time.Hour)

			sp, ok := m.EffectiveSetpoint(sched, at, 1.0, -3.0, 10.0)
			assert.Equal(t, tt.wantHeat, ok)
			if tt.wantHeat {
				assert.Equal(t, tt.wantSP, sp)
			}
		})
	}
}

func TestAutoOutsideScheduleDisables(t *testing.T) {
	m := NewModeManager("living_room", model.ModeAuto, nil)

	_, ok := m.EffectiveSetpoint(testSchedule(t), weekdayAt(3, 0), 1.0, -3.0, 10.0)
	assert.False(t, ok)
}

func TestBoostActiveAndExpiry(t *testing.T) {
	m := NewModeManager("living_room", model.ModeManual, nil)

	start := weekdayAt(10, 0)
	m.now = func() time.Time { return start }

	boostSP := 24.0
	m.SetMode(model.ModeBoost, &boostSP, 2*time.Hour)
	require.Equal(t, model.ModeBoost, m.Mode())
	require.NotNil(t, m.BoostExpiresAt())
	assert.Equal(t, start.Add(2*time.Hour), *m.BoostExpiresAt())

	// Still inside the boost window.
	sp, ok := m.EffectiveSetpoint(testSchedule(t), start.Add(time.Hour), 1.0, -3.0, 10.0)
	require.True(t, ok)
	assert.Equal(t, 24.0, sp)

	// Past expiry the mode reverts to auto, not to the mode boost replaced.
	sp, ok = m.EffectiveSetpoint(testSchedule(t), start.Add(2*time.Hour), 1.0, -3.0, 10.0)
	assert.Equal(t, model.ModeAuto, m.Mode())
	assert.Nil(t, m.BoostExpiresAt())
	assert.Nil(t, m.ManualSetpoint())
	require.True(t, ok, "10:00 weekday is inside the schedule")
	assert.Equal(t, 20.0, sp)
}

func TestSetModeClearsBoostState(t *testing.T) {
	m := NewModeManager("living_room", model.ModeAuto, nil)

	boostSP := 24.0
	m.SetMode(model.ModeBoost, &boostSP, time.Hour)
	require.NotNil(t, m.BoostExpiresAt())

	m.SetMode(model.ModeAway, nil, 0)
	assert.Nil(t, m.BoostExpiresAt())
	assert.Nil(t, m.ManualSetpoint())
	assert.Equal(t, model.ModeAway, m.Mode())
}

func TestModeStatePersistedAndRestored(t *testing.T) {
	store := newMemStore()

	m := NewModeManager("living_room", model.ModeAuto, store)
	manual := 22.0
	m.SetMode(model.ModeManual, &manual, 0)
	require.Equal(t, 1, store.saves)

	// A fresh manager picks up the persisted state instead of its default.
	restored := NewModeManager("living_room", model.ModeAuto, store)
	assert.Equal(t, model.ModeManual, restored.Mode())
	require.NotNil(t, restored.ManualSetpoint())
	assert.Equal(t, 22.0, *restored.ManualSetpoint())
}

func TestBoostExpiryPersisted(t *testing.T) {
	store := newMemStore()

	m := NewModeManager("living_room", model.ModeAuto, store)
	start := weekdayAt(10, 0)
	m.now = func() time.Time { return start }

	boostSP := 24.0
	m.SetMode(model.ModeBoost, &boostSP, time.Hour)
	savesBefore := store.saves

	m.EffectiveSetpoint(testSchedule(t), start.Add(2*time.Hour), 1.0, -3.0, 10.0)
	assert.Greater(t, store.saves, savesBefore, "expiry revert must be persisted")
	assert.Equal(t, model.ModeAuto, store.states["living_room"].Mode)
}

func TestManagerZoneWithoutSchedule(t *testing.T) {
	m := NewManager(Settings{ComfortOffset: 1, AwayOffset: -3, VacationSetpoint: 10}, nil)
	m.AddZone("bathroom", nil)

	mode, ok := m.ZoneMode("bathroom")
	require.True(t, ok)
	assert.Equal(t, model.ModeManual, mode, "schedule-less zones default to manual")

	// Manual works once a setpoint is set.
	sp := 21.0
	require.NoError(t, m.SetZoneMode("bathroom", model.ModeManual, &sp, 0))
	got, ok := m.EffectiveSetpoint("bathroom", weekdayAt(10, 0))
	require.True(t, ok)
	assert.Equal(t, 21.0, got)

	// Schedule-backed modes are rejected for the zone.
	require.NoError(t, m.SetZoneMode("bathroom", model.ModeAuto, nil, 0))
	_, ok = m.EffectiveSetpoint("bathroom", weekdayAt(10, 0))
	assert.False(t, ok)
}

func TestManagerDefaultBoostDuration(t *testing.T) {
	m := NewManager(Settings{}, nil)
	assert.Equal(t, 2*time.Hour, m.DefaultBoostDuration())

	m = NewManager(Settings{DefaultBoostDuration: 30 * time.Minute}, nil)
	m.AddZone("living_room", testSchedule(t))

	sp := 24.0
	require.NoError(t, m.SetZoneMode("living_room", model.ModeBoost, &sp, 0))

	st, ok := m.ZoneState("living_room", weekdayAt(10, 0))
	require.True(t, ok)
	require.NotNil(t, st.BoostExpiresAt)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), *st.BoostExpiresAt, 5*time.Second)
}

func TestManagerUnknownZone(t *testing.T) {
	m := NewManager(Settings{}, nil)

	_, ok := m.EffectiveSetpoint("ghost", weekdayAt(10, 0))
	assert.False(t, ok)

	assert.Error(t, m.SetZoneMode("ghost", model.ModeAuto, nil, 0))
}
