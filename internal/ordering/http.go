package ordering

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"PharmaStore/internal/catalog"
	"PharmaStore/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// OrderLimitPerMin caps order submissions per client IP; zero disables
	// the limiter.
	OrderLimitPerMin int

	// Assist, when set, is mounted at /assist behind its own limiter.
	Assist            http.Handler
	AssistLimitPerMin int
}

// Server exposes the ordering core plus the advisory catalog read paths.
type Server struct {
	Facade      *Facade
	Store       catalog.Store
	Cache       *catalog.Cache
	CatalogPath string
	Log         *zap.Logger

	metrics *kit.Metrics
}

const maxOrderBody = 1 << 20

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if deps.Registry != nil {
		s.metrics = kit.NewMetrics(deps.Registry)
		if s.Facade != nil && s.Facade.Engine != nil {
			s.Facade.Engine.Metrics = s.metrics
		}
		r.Use(s.metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

		if deps.MetricsEnabled {
			r.With(kit.MetricsAuth(deps.MetricsToken)).
				Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Get("/catalog/search", s.search)
	r.Post("/catalog/reload", s.reload)

	if deps.OrderLimitPerMin > 0 {
		limiter := kit.NewIPRateLimiter(deps.OrderLimitPerMin, time.Minute)
		r.With(limiter.Middleware).Post("/orders", s.submit)
	} else {
		r.Post("/orders", s.submit)
	}

	if deps.Assist != nil {
		if deps.AssistLimitPerMin > 0 {
			limiter := kit.NewIPRateLimiter(deps.AssistLimitPerMin, time.Minute)
			r.With(limiter.Middleware).Mount("/assist", deps.Assist)
		} else {
			r.Mount("/assist", deps.Assist)
		}
	}

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		if s.Log != nil {
			s.Log.Warn("readyz failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type submitReq struct {
	SessionID string     `json:"session_id"`
	Lines     []CartLine `json:"lines"`
}

type rejectedResp struct {
	Errors []Rejection `json:"errors"`
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSubmit(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	res, rejections, err := s.Facade.SubmitOrder(r.Context(), req.SessionID, req.Lines)
	switch {
	case errors.Is(err, ErrEmptyOrder):
		kit.WriteError(w, r, http.StatusBadRequest, "lines required", nil)
	case errors.Is(err, ErrInternalInconsistency):
		s.countOrder("inconsistent")
		if s.Log != nil {
			s.Log.Error("order processing halted", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "order state inconsistent", nil)
	case errors.Is(err, catalog.ErrStoreUnavailable):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "store unavailable", nil)
	case err != nil:
		if s.Log != nil {
			s.Log.Error("submit order failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	case len(rejections) > 0:
		s.countOrder("rejected")
		kit.WriteJSON(w, http.StatusUnprocessableEntity, rejectedResp{Errors: rejections})
	default:
		s.countOrder("committed")
		kit.WriteJSON(w, http.StatusCreated, res)
	}
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	controlled, _ := strconv.ParseBool(r.URL.Query().Get("controlled"))

	products, err := s.Cache.Search(r.Context(), q, controlled)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("catalog search failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	n, err := catalog.LoadFile(r.Context(), s.Store, s.CatalogPath)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("catalog reload failed", zap.Error(err), zap.String("path", s.CatalogPath))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "reload failed", nil)
		return
	}

	s.Cache.Invalidate()
	kit.WriteJSON(w, http.StatusOK, map[string]any{"loaded": n})
}

func (s *Server) countOrder(outcome string) {
	if s.metrics != nil {
		s.metrics.Orders.WithLabelValues(outcome).Inc()
	}
}

func decodeSubmit(w http.ResponseWriter, r *http.Request) (submitReq, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxOrderBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)

	var req submitReq
	if err := dec.Decode(&req); err != nil {
		return submitReq{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return submitReq{}, errors.New("extra data after json object")
	}
	return req, nil
}
