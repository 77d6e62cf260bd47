// Package httptransport is the thin HTTP layer. Handlers decode, call a
// service, and encode; every business rule lives below them.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwttoken "kycd/internal/jwt_token"
	documentsvc "kycd/internal/kyc/service/document"
	profilesvc "kycd/internal/kyc/service/profile"
	verificationsvc "kycd/internal/kyc/service/verification"
	"kycd/internal/platform/middleware"
)

// SweepRunner triggers a retention sweep on demand.
type SweepRunner interface {
	Sweep(ctx context.Context)
}

type Handler struct {
	profiles     *profilesvc.Service
	verification *verificationsvc.Service
	documents    *documentsvc.Service
	tokens       *jwttoken.Service
	sweeper      SweepRunner
	logger       *slog.Logger

	maxUploadBytes int64
}

type Config struct {
	Profiles     *profilesvc.Service
	Verification *verificationsvc.Service
	Documents    *documentsvc.Service
	Tokens       *jwttoken.Service
	Sweeper      SweepRunner
	Logger       *slog.Logger

	AdminToken     string
	MaxUploadBytes int64

	// Registry exposes /metrics when set.
	Registry *prometheus.Registry
}

func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 2 << 20
	}
	return &Handler{
		profiles:       cfg.Profiles,
		verification:   cfg.Verification,
		documents:      cfg.Documents,
		tokens:         cfg.Tokens,
		sweeper:        cfg.Sweeper,
		logger:         logger,
		maxUploadBytes: maxUpload,
	}
}

// NewRouter wires the public API surface behind the shared middleware
// chain. Registration is the only unauthenticated endpoint; admin
// routes sit behind the shared admin token instead of a user JWT.
func NewRouter(h *Handler, cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.Logger(h.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", h.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.tokens, h.logger))

			r.Get("/profile", h.handleGetProfile)
			r.Patch("/profile", h.handleUpdateProfile)
			r.Get("/status", h.handleStatus)

			r.Post("/verify/pan", h.handleVerifyPAN)
			r.Post("/verify/aadhaar/initiate", h.handleInitiateAadhaar)
			r.Post("/verify/aadhaar", h.handleVerifyAadhaar)
			r.Post("/verify/bank", h.handleVerifyBank)

			r.Post("/documents/upload", h.handleUploadDocument)
			r.Get("/documents", h.handleListDocuments)
			r.Delete("/documents/{documentID}", h.handleDeleteDocument)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdminToken(cfg.AdminToken, h.logger))
			r.Get("/admin/documents/pending", h.handleListPendingDocuments)
			r.Post("/admin/documents/review", h.handleReviewDocument)
			if h.sweeper != nil {
				r.Post("/admin/sweep", h.handleTriggerSweep)
			}
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
