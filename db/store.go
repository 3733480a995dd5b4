package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/homehub/heating-controller/internal/model"
)

// Store wraps the sqlite connection with the queries the controller uses.
type Store struct {
	conn *sql.DB
}

func NewStore(conn *sql.DB) *Store {
	return &Store{conn: conn}
}

// SaveModeState overwrites the persisted mode record for one zone.
func (s *Store) SaveModeState(zone string, st model.ModeState) error {
	var setpoint sql.NullFloat64
	if st.ManualSetpoint != nil {
		setpoint = sql.NullFloat64{Float64: *st.ManualSetpoint, Valid: true}
	}
	var expires sql.NullString
	if st.BoostExpiresAt != nil {
		expires = sql.NullString{String: st.BoostExpiresAt.Format(time.RFC3339), Valid: true}
	}
	var prev sql.NullString
	if st.PreviousMode != nil {
		prev = sql.NullString{String: string(*st.PreviousMode), Valid: true}
	}

	_, err := s.conn.Exec(
		`INSERT OR REPLACE INTO zone_modes (zone_name, mode, manual_setpoint, boost_expires_at, previous_mode, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		zone, string(st.Mode), setpoint, expires, prev, st.LastUpdated.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save mode state for %s: %w", zone, err)
	}
	return nil
}

// LoadModeState returns the persisted record for a zone, or nil when the zone
// has never been saved.
func (s *Store) LoadModeState(zone string) (*model.ModeState, error) {
	var (
		mode        string
		setpoint    sql.NullFloat64
		expires     sql.NullString
		prev        sql.NullString
		lastUpdated string
	)

	err := s.conn.QueryRow(
		`SELECT mode, manual_setpoint, boost_expires_at, previous_mode, last_updated FROM zone_modes WHERE zone_name = ?`,
		zone).Scan(&mode, &setpoint, &expires, &prev, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mode state for %s: %w", zone, err)
	}

	parsedMode, err := model.ParseOperatingMode(mode)
	if err != nil {
		return nil, fmt.Errorf("corrupt mode state for %s: %w", zone, err)
	}

	st := &model.ModeState{Mode: parsedMode}
	if setpoint.Valid {
		v := setpoint.Float64
		st.ManualSetpoint = &v
	}
	if expires.Valid {
		t, err := time.Parse(time.RFC3339, expires.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt boost expiry for %s: %w", zone, err)
		}
		st.BoostExpiresAt = &t
	}
	if prev.Valid {
		m, err := model.ParseOperatingMode(prev.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt previous mode for %s: %w", zone, err)
		}
		st.PreviousMode = &m
	}
	if t, err := time.Parse(time.RFC3339, lastUpdated); err == nil {
		st.LastUpdated = t
	}
	return st, nil
}

// AllModeStates returns every persisted zone record keyed by zone name.
func (s *Store) AllModeStates() (map[string]model.ModeState, error) {
	rows, err := s.conn.Query(`SELECT zone_name FROM zone_modes ORDER BY zone_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query zone modes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan zone name: %w", err)
		}
		names = append(names, name)
	}

	states := make(map[string]model.ModeState, len(names))
	for _, name := range names {
		st, err := s.LoadModeState(name)
		if err != nil {
			return nil, err
		}
		if st != nil {
			states[name] = *st
		}
	}
	return states, nil
}

// BoilerRuntimeMinutes returns the persisted cumulative boiler runtime.
func (s *Store) BoilerRuntimeMinutes() (float64, error) {
	var minutes float64
	err := s.conn.QueryRow(`SELECT boiler_runtime_minutes FROM system WHERE id = 1`).Scan(&minutes)
	if err != nil {
		return 0, fmt.Errorf("failed to get boiler runtime: %w", err)
	}
	return minutes, nil
}

// SetBoilerRuntimeMinutes stores the cumulative boiler runtime.
func (s *Store) SetBoilerRuntimeMinutes(minutes float64) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	if _, err := tx.Exec(`UPDATE system SET boiler_runtime_minutes = ? WHERE id = 1`, minutes); err != nil {
		tx.Rollback()
		return fmt.Errorf("update boiler runtime: %w", err)
	}
	return tx.Commit()
}
