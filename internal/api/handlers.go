package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/pipeline"
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: "internal error"}

	if se, ok := err.(*stderrors.StandardError); ok {
		resp.Code = string(se.Code)
		resp.Error = se.Message
		resp.Details = se.Details
		if se.Code == stderrors.ErrCodeResultNotFound {
			status = http.StatusNotFound
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// latestResult reads from the cache first and falls back to object
// storage on any cache miss or failure.
func (s *Server) latestResult(r *http.Request, analysisType string) (json.RawMessage, error) {
	if s.results != nil {
		data, err := s.results.GetLatest(r.Context(), analysisType)
		if err == nil {
			return data, nil
		}
	}
	if s.fallback != nil {
		return s.fallback.GetLatestResults(r.Context(), analysisType)
	}
	return nil, stderrors.NewResultNotFoundError(analysisType)
}

func (s *Server) latestHandler(analysisType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.latestResult(r, analysisType)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeRaw(w, http.StatusOK, data)
	}
}

func (s *Server) handleLatestByType(w http.ResponseWriter, r *http.Request) {
	analysisType := mux.Vars(r)["type"]
	if !pipeline.ValidAction(analysisType) || analysisType == pipeline.ActionFull {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "unknown analysis type: " + analysisType,
		})
		return
	}

	data, err := s.latestResult(r, analysisType)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, data)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"runs": []interface{}{}})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	runs, err := s.history.RecentRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

type triggerRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: "run trigger not configured",
		})
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Action == "" {
		req.Action = pipeline.ActionFull
	}

	action, err := pipeline.ParseAction(req.Action)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.log.Info("Run triggered via API", map[string]interface{}{
		"action": action,
	})

	result, err := s.trigger.Run(r.Context(), action)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
