package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/auth"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

type dashboardResponse struct {
	ServerTime string               `json:"server_time"`
	Points     []types.DashboardRow `json:"points"`
}

type eventsResponse struct {
	Events []types.EventView `json:"events"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	now := time.Now().UTC()

	rows, err := s.dashboardService.Feed(r.Context(), p.AccountID, now)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		ServerTime: now.Format(time.RFC3339Nano),
		Points:     rows,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())

	q := r.URL.Query()
	var scope service.EventScope
	for _, f := range []struct {
		name string
		dst  *int64
	}{{"hub_id", &scope.HubID}, {"point_id", &scope.PointID}} {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, f.name+" must be a positive integer")
			return
		}
		*f.dst = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "limit must be a positive integer")
			return
		}
		scope.Limit = n
	}

	events, err := s.dashboardService.Events(r.Context(), p.AccountID, scope)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}
