package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/homehub/heating-controller/internal/heating"
	"github.com/homehub/heating-controller/internal/model"
)

type Server struct {
	svc *heating.Service
}

type ZoneModeRequest struct {
	Mode          string   `json:"mode"`
	Setpoint      *float64 `json:"setpoint"`
	DurationHours *float64 `json:"duration_hours"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewServer(svc *heating.Service) *Server {
	return &Server{svc: svc}
}

func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/zones", s.handleZones)
	mux.HandleFunc("/api/zones/", s.handleZoneOperations)
	mux.HandleFunc("/api/system", s.handleSystem)

	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("Starting REST API server")

	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var zones []heating.ZoneStatus
	for _, name := range s.svc.ZoneNames() {
		if st, ok := s.svc.ZoneStatus(name); ok {
			zones = append(zones, st)
		}
	}
	writeJSON(w, http.StatusOK, zones)
}

func (s *Server) handleZoneOperations(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/zones/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "zone not specified")
		return
	}
	name := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		st, ok := s.svc.ZoneStatus(name)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown zone %q", name))
			return
		}
		writeJSON(w, http.StatusOK, st)

	case len(parts) == 2 && parts[1] == "mode" && r.Method == http.MethodPut:
		s.setZoneMode(w, r, name)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) setZoneMode(w http.ResponseWriter, r *http.Request, name string) {
	var req ZoneModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, err := model.ParseOperatingMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var duration time.Duration
	if req.DurationHours != nil {
		duration = time.Duration(*req.DurationHours * float64(time.Hour))
	}

	if err := s.svc.SetZoneMode(name, mode, req.Setpoint, duration); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	st, _ := s.svc.ZoneStatus(name)
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.SystemStatus())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode API response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
