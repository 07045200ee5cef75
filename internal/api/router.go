// Package api exposes the duplicate review service over HTTP.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/place-dedup/internal/config"
	"github.com/sells-group/place-dedup/internal/review"
)

// Server holds the handlers' dependencies.
type Server struct {
	svc            *review.Service
	clusterLimiter *rate.Limiter
	log            *zap.Logger
}

// NewServer creates a Server. A non-positive cfg.ClusterRPS disables the
// cluster endpoint's rate limit.
func NewServer(svc *review.Service, cfg config.ServerConfig) *Server {
	s := &Server{
		svc: svc,
		log: zap.L().With(zap.String("component", "api")),
	}
	if cfg.ClusterRPS > 0 {
		burst := max(cfg.ClusterBurst, 1)
		s.clusterLimiter = rate.NewLimiter(rate.Limit(cfg.ClusterRPS), burst)
	}
	return s
}

// NewRouter builds the HTTP route tree.
func NewRouter(s *Server, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.logRequests)

	r.Get("/health", s.health)

	r.Get("/places/{id}/duplicates", s.placeDuplicates)

	r.Route("/duplicates", func(dr chi.Router) {
		dr.With(s.limitClusters).Get("/clusters", s.clusters)

		dr.Get("/dismissed", s.listDismissed)
		dr.Post("/dismissed", s.dismiss)
		dr.Delete("/dismissed", s.undismiss)
	})

	return r
}

// limitClusters rejects cluster requests over the configured rate.
func (s *Server) limitClusters(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.clusterLimiter != nil && !s.clusterLimiter.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(s.clusterLimiter)))
			writeError(w, http.StatusTooManyRequests, "too many cluster requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(l *rate.Limiter) int {
	if l.Limit() <= 0 {
		return 1
	}
	secs := int(time.Duration(float64(time.Second) / float64(l.Limit())).Seconds())
	return max(secs, 1)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}
