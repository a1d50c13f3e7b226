package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/couchcryptid/crop-water-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, messageResponse{Message: "Smart Plant Monitoring System API"})
}

func (s *Server) handleListPlants(w http.ResponseWriter, r *http.Request) {
	readings, err := s.deps.Plants.List(r.Context())
	if err != nil {
		s.logger.Error("list plants failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, readings)
}

func (s *Server) handleUpdatePlant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var reading domain.PlantReading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if reading.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := s.deps.Plants.Put(r.Context(), id, reading); err != nil {
		s.logger.Error("store plant reading failed", "plant_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Updated data for plant %s", id)})
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var cmd domain.ControlCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if cmd.Action != domain.ActionPump {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported action %q", cmd.Action))
		return
	}

	on := cmd.Value != nil && *cmd.Value != 0
	if err := s.deps.Device.SetPump(r.Context(), on); err != nil {
		s.logger.Error("pump control failed", "plant_id", cmd.PlantID, "on", on, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to control pump")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Command sent: %s", cmd.Action)})
}

func (s *Server) handleSensorData(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	level, err := s.deps.Device.Moisture(r.Context())
	if err != nil {
		s.logger.Error("read moisture failed", "plant_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get sensor data")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.PlantReading{Name: id, MoistureLevel: level})
}
