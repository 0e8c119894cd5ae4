package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/preflight/internal/orchestrator"
)

const (
	defaultRunsLimit = 10
	maxRunsLimit     = 100
)

// AircraftView is the JSON form of a loaded profile.
type AircraftView struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"display_name"`
	Ownship          []string `json:"ownship"`
	ExpectedDuration float64  `json:"expected_duration"`
	Steps            []string `json:"steps"`
	Switches         int      `json:"switches"`
	Source           string   `json:"source,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sequencer.Status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("start requested over HTTP", "subject", subjectFromContext(r.Context()))
	s.submit(w, s.sequencer.RequestStart())
}

func (s *Server) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("interrupt requested over HTTP", "subject", subjectFromContext(r.Context()))
	s.submit(w, s.sequencer.RequestInterrupt())
}

// submit answers 202 once the request is queued. The sequencer acts on it
// on its next wake, so the response carries no outcome.
func (s *Server) submit(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	case errors.Is(err, orchestrator.ErrQueueFull):
		writeServiceUnavailable(w, "sequencer is busy, try again")
	default:
		s.logger.Error("submitting sequencer request", "error", err)
		writeInternalError(w, "failed to submit request")
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeServiceUnavailable(w, "run history is not available")
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs", "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []orchestrator.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeServiceUnavailable(w, "run history is not available")
		return
	}

	run, err := s.runs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, orchestrator.ErrRunNotFound) {
		writeNotFound(w, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("getting run", "error", err)
		writeInternalError(w, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListAircraft(w http.ResponseWriter, _ *http.Request) {
	views := []AircraftView{}
	if s.catalog != nil {
		for _, p := range s.catalog.List() {
			v := AircraftView{
				Name:             p.Name,
				DisplayName:      p.DisplayName,
				Ownship:          p.Ownship,
				ExpectedDuration: p.ExpectedDuration,
				Steps:            make([]string, 0, len(p.Steps)),
				Switches:         len(p.Switches),
				Source:           p.Source,
			}
			for _, st := range p.Steps {
				v.Steps = append(v.Steps, st.Name)
			}
			views = append(views, v)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"aircraft": views, "count": len(views)})
}
