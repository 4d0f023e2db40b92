// Package http serves the public verification endpoint and the
// authenticated JSON API over chi.
package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/mitrasign/internal/logging"
	"github.com/dmitrijs2005/mitrasign/internal/server/access"
	"github.com/dmitrijs2005/mitrasign/internal/server/metrics"
	"github.com/dmitrijs2005/mitrasign/internal/server/models"
	"github.com/dmitrijs2005/mitrasign/internal/server/ratelimit"
	"github.com/dmitrijs2005/mitrasign/internal/server/services"
)

const maxBodyBytes = 1 << 20

type SignatureService interface {
	Create(ctx context.Context, caller access.Caller, in services.CreateSignatureInput) (*services.IssuedSignature, error)
	Get(ctx context.Context, caller access.Caller, id string) (*models.Signature, error)
	Revoke(ctx context.Context, caller access.Caller, id string) error
	VerificationQR(ctx context.Context, caller access.Caller, id string) ([]byte, error)
	History(ctx context.Context, caller access.Caller, targetID, filter string) (*services.History, error)
}

type VerificationService interface {
	Resolve(ctx context.Context, rawID string) (*models.Verification, error)
	ResolveLegacy(ctx context.Context, p models.LegacyParams) *models.LegacyVerification
}

type AdminService interface {
	Stats(ctx context.Context, caller access.Caller) (*models.Stats, error)
	Signers(ctx context.Context, caller access.Caller, filter string) ([]models.SignerSummary, error)
	ExportReport(ctx context.Context, caller access.Caller) (*services.Report, error)
}

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.Profile, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Profile(ctx context.Context, caller access.Caller) (*models.Profile, error)
}

// Deps bundles the collaborators of Server.
type Deps struct {
	Signatures     SignatureService
	Verification   VerificationService
	Admin          AdminService
	Users          UserService
	Limiter        ratelimit.Limiter
	Metrics        *metrics.Metrics
	Logger         logging.Logger
	SecretKey      []byte
	RequestTimeout time.Duration

	// TrustProxyHeaders derives the client address from X-Forwarded-For and
	// X-Real-IP. Otherwise the socket peer address is used.
	TrustProxyHeaders bool
}

type Server struct {
	Deps
	logger logging.Logger
}

func NewServer(d Deps) *Server {
	if d.Limiter == nil {
		d.Limiter = ratelimit.Unlimited{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Logger == nil {
		d.Logger = logging.Nop{}
	}
	return &Server{Deps: d, logger: d.Logger.With("module", "http")}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))

	r.With(s.rateLimit).Get("/verify", s.handleVerify)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/me", s.handleMe)

			r.Post("/signatures", s.handleCreateSignature)
			r.Get("/signatures/{id}", s.handleGetSignature)
			r.Delete("/signatures/{id}", s.handleDeleteSignature)
			r.Get("/signatures/{id}/qr.png", s.handleSignatureQR)
			r.Get("/history", s.handleHistory)

			r.Get("/admin/stats", s.handleAdminStats)
			r.Get("/admin/signers", s.handleAdminSigners)
			r.Post("/admin/reports", s.handleAdminReport)
		})
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.Metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		s.Metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		s.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := s.Limiter.Allow(r.Context(), clientIP(r))
		if err != nil {
			// Verification stays available when the limiter backend is down.
			s.logger.Warn(r.Context(), "rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			s.Metrics.RateLimited.Inc()
			writeError(w, http.StatusTooManyRequests, "rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
