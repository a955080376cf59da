package worldmonitor

import "net/http"

type healthResponse struct {
	Status   string `json:"status"`
	Datasets int    `json:"datasets"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Datasets: len(s.cfg.Sources),
	})
}
