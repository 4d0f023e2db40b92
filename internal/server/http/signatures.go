package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/mitrasign/internal/server/models"
	"github.com/dmitrijs2005/mitrasign/internal/server/services"
)

type createSignatureRequest struct {
	Subject    string `json:"subject"`
	ClassName  string `json:"class_name"`
	DateSigned string `json:"date_signed"`
}

type createSignatureResponse struct {
	ID        string            `json:"id"`
	VerifyURL string            `json:"verify_url"`
	Record    *models.Signature `json:"record"`
}

type historyResponse struct {
	Signer     *profileResponse    `json:"signer"`
	Signatures []*models.Signature `json:"signatures"`
}

func (s *Server) handleCreateSignature(w http.ResponseWriter, r *http.Request) {
	var req createSignatureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	issued, err := s.Signatures.Create(r.Context(), callerFromContext(r.Context()), services.CreateSignatureInput{
		Subject:    req.Subject,
		ClassName:  req.ClassName,
		DateSigned: req.DateSigned,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.Metrics.SignatureChanges.WithLabelValues("issued").Inc()
	writeJSON(w, http.StatusCreated, createSignatureResponse{
		ID:        issued.Record.ID,
		VerifyURL: issued.VerifyURL,
		Record:    issued.Record,
	})
}

func (s *Server) handleGetSignature(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Signatures.Get(r.Context(), callerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteSignature(w http.ResponseWriter, r *http.Request) {
	if err := s.Signatures.Revoke(r.Context(), callerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.Metrics.SignatureChanges.WithLabelValues("revoked").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSignatureQR(w http.ResponseWriter, r *http.Request) {
	png, err := s.Signatures.VerificationQR(r.Context(), callerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h, err := s.Signatures.History(r.Context(), callerFromContext(r.Context()), q.Get("user"), q.Get("q"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := historyResponse{Signatures: h.Signatures}
	if h.Signer != nil {
		p := toProfileResponse(h.Signer)
		resp.Signer = &p
	}
	if resp.Signatures == nil {
		resp.Signatures = []*models.Signature{}
	}
	writeJSON(w, http.StatusOK, resp)
}
