package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/couchcryptid/crop-water-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const modelNotFound = "Model not found. Please train the model first."

type predictRequest struct {
	Crop        string `json:"crop"`
	Soil        string `json:"soil"`
	Region      string `json:"region"`
	Weather     string `json:"weather"`
	Temperature string `json:"temperature"`
}

func (req predictRequest) record() domain.Record {
	return domain.Record{
		Crop:        strings.TrimSpace(req.Crop),
		Soil:        strings.TrimSpace(req.Soil),
		Region:      strings.TrimSpace(req.Region),
		Weather:     strings.TrimSpace(req.Weather),
		Temperature: strings.TrimSpace(req.Temperature),
	}
}

// missingField names the first empty field, or "" when all are set.
func (req predictRequest) missingField() string {
	rec := req.record()
	for _, f := range []struct{ name, value string }{
		{domain.FieldCrop, rec.Crop},
		{domain.FieldSoil, rec.Soil},
		{domain.FieldRegion, rec.Region},
		{domain.FieldWeather, rec.Weather},
		{"temperature", rec.Temperature},
	} {
		if f.value == "" {
			return f.name
		}
	}
	return ""
}

func (s *Server) handleCrops(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Predictor.Report(r.Context())
	if errors.Is(err, domain.ErrArtifactNotFound) {
		writeError(w, http.StatusNotFound, modelNotFound)
		return
	}
	if err != nil {
		s.logger.Error("load crop report failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.countPrediction("bad_input")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if field := req.missingField(); field != "" {
		s.countPrediction("bad_input")
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Detail: field + " is required", Field: field})
		return
	}

	pred, err := s.deps.Predictor.Predict(r.Context(), req.record())
	if err != nil {
		s.writePredictError(w, err)
		return
	}
	s.countPrediction("success")
	sharedobs.WriteJSON(w, http.StatusOK, pred)
}

func (s *Server) writePredictError(w http.ResponseWriter, err error) {
	var unknown *domain.UnknownCategoryError
	var badFormat *domain.DataFormatError
	switch {
	case errors.Is(err, domain.ErrArtifactNotFound):
		s.countPrediction("no_model")
		writeError(w, http.StatusNotFound, modelNotFound)
	case errors.As(err, &unknown):
		s.countPrediction("unknown_category")
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: unknown.Error(), Field: unknown.Field, Value: unknown.Value})
	case errors.As(err, &badFormat):
		s.countPrediction("bad_input")
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Detail: badFormat.Error(), Field: badFormat.Field, Value: badFormat.Value})
	default:
		s.countPrediction("error")
		s.logger.Error("prediction failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Predictor.Reload(r.Context())
	if errors.Is(err, domain.ErrArtifactNotFound) {
		writeError(w, http.StatusNotFound, modelNotFound)
		return
	}
	if err != nil {
		s.logger.Error("model reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.deps.Metrics.ModelLoaded.Set(1)
	sharedobs.WriteJSON(w, http.StatusOK, messageResponse{Message: "Model reloaded"})
}

func (s *Server) countPrediction(outcome string) {
	s.deps.Metrics.Predictions.WithLabelValues(outcome).Inc()
}
