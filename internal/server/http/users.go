package http

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/mitrasign/internal/server/models"
	"github.com/dmitrijs2005/mitrasign/internal/server/services"
)

type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	UnitName     string `json:"unit_name"`
	DefaultClass string `json:"default_class"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type profileResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	UnitName     string    `json:"unit_name"`
	DefaultClass string    `json:"default_class"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func toProfileResponse(p *models.Profile) profileResponse {
	return profileResponse{
		ID:           p.ID,
		Email:        p.Email,
		FullName:     p.FullName,
		UnitName:     p.UnitName,
		DefaultClass: p.DefaultClass,
		Role:         string(p.Role),
		CreatedAt:    p.CreatedAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	p, err := s.Users.Register(r.Context(), services.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		FullName:     req.FullName,
		UnitName:     req.UnitName,
		DefaultClass: req.DefaultClass,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProfileResponse(p))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	pair, err := s.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	pair, err := s.Users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, err := s.Users.Profile(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}
