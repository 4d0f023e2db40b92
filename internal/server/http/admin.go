package http

import (
	"net/http"

	"github.com/dmitrijs2005/mitrasign/internal/server/models"
)

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Admin.Stats(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAdminSigners(w http.ResponseWriter, r *http.Request) {
	list, err := s.Admin.Signers(r.Context(), callerFromContext(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.SignerSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"signers": list})
}

func (s *Server) handleAdminReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Admin.ExportReport(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}
