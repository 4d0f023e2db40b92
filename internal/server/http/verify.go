package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/mitrasign/internal/common"
	"github.com/dmitrijs2005/mitrasign/internal/server/metrics"
	"github.com/dmitrijs2005/mitrasign/internal/server/models"
)

type verifyResponse struct {
	Verified bool `json:"verified"`
	*models.Verification
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Has(common.VerifyIDParam) {
		s.verifyCanonical(w, r, q.Get(common.VerifyIDParam))
		return
	}

	legacy := models.LegacyParams{
		Name:    q.Get("name"),
		Class:   q.Get("class"),
		Subject: q.Get("subject"),
		Date:    q.Get("date"),
		Unit:    q.Get("unit"),
	}
	if strings.TrimSpace(legacy.Name+legacy.Class+legacy.Subject+legacy.Date+legacy.Unit) == "" {
		s.Metrics.Verifications.WithLabelValues("http", metrics.OutcomeNotFound).Inc()
		writeJSON(w, http.StatusNotFound, map[string]any{"verified": false, "error": "cannot_verify"})
		return
	}

	s.Metrics.Verifications.WithLabelValues("http", metrics.OutcomeLegacy).Inc()
	writeJSON(w, http.StatusOK, s.Verification.ResolveLegacy(r.Context(), legacy))
}

func (s *Server) verifyCanonical(w http.ResponseWriter, r *http.Request, id string) {
	v, err := s.Verification.Resolve(r.Context(), id)
	switch {
	case err == nil:
		s.Metrics.Verifications.WithLabelValues("http", metrics.OutcomeVerified).Inc()
		writeJSON(w, http.StatusOK, verifyResponse{Verified: true, Verification: v})
	case errors.Is(err, common.ErrorNotFound):
		s.Metrics.Verifications.WithLabelValues("http", metrics.OutcomeNotFound).Inc()
		writeJSON(w, http.StatusNotFound, map[string]any{"verified": false, "error": "cannot_verify"})
	default:
		s.Metrics.Verifications.WithLabelValues("http", metrics.OutcomeUnavailable).Inc()
		s.writeServiceError(w, r, err)
	}
}
