package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"

	"market-dss/models"
	"market-dss/services"
	"market-dss/utils"
)

// MaxUploadSize bounds a multipart upload request.
const MaxUploadSize = 200 << 20

// Analytics is the part of the pipeline the API serves.
type Analytics interface {
	Opportunities(ctx context.Context) (*models.OpportunityReport, error)
	ReviewOpportunities(ctx context.Context) (*models.OpportunityReport, error)
	Demand(ctx context.Context) (*models.DemandResult, error)
	Gap(ctx context.Context) (*models.GapReport, error)
	GapRows(ctx context.Context) ([]models.GapRow, error)
	IngestAll(ctx context.Context, paths []string) []services.IngestResult
}

// Options locates files the API reads and writes.
type Options struct {
	UploadDir   string
	HistoryPath string
	CORSOrigins []string
}

// Server exposes the analyses as a JSON API.
type Server struct {
	analytics Analytics
	tokens    *TokenManager
	users     Users
	opts      Options
	logger    *utils.Logger
}

func NewServer(analytics Analytics, tokens *TokenManager, users Users, opts Options, logger *utils.Logger) *Server {
	return &Server{analytics: analytics, tokens: tokens, users: users, opts: opts, logger: logger}
}

// Router builds the chi router with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/api/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(requireBearer(s.tokens))
		r.Post("/api/upload", s.handleUpload)
		r.Get("/api/analysis", s.handleAnalysis)
		r.Get("/api/analysis/reviews", s.handleReviewAnalysis)
		r.Get("/api/demand", s.handleDemand)
		r.Get("/api/gap", s.handleGap)
		r.Get("/api/gap/table", s.handleGapTable)
		r.Get("/api/history", s.handleHistory)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, `{"msg":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}
