// Package server exposes the timeline engine over a read-only JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/timeline"
)

// Config for the HTTP API handler.
type Config struct {
	Engine *timeline.Engine
	// Now is the reference clock for week buckets; defaults to time.Now.
	Now func() time.Time
	// Mode is the visualization mode used when a request names none.
	Mode timeline.VisualizationMode
	// Registry receives the server's collectors; nil creates a private one.
	Registry *prometheus.Registry
}

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) Error() string { return e.Body.Message }

func badRequest(format string, args ...any) *apiError {
	return &apiError{status: http.StatusBadRequest, Body: apiErrorBody{Code: "bad_request", Message: fmt.Sprintf(format, args...)}}
}

type api struct {
	engine *timeline.Engine
	now    func() time.Time
	mode   timeline.VisualizationMode
}

// New returns an HTTP handler exposing the timeline API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Mode == "" {
		cfg.Mode = timeline.ModeDimOnly
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	rm := newRequestMetrics()
	if err := reg.Register(rm); err != nil {
		return nil, fmt.Errorf("registering request metrics: %w", err)
	}
	if err := reg.Register(newEngineCollector(cfg.Engine)); err != nil {
		return nil, fmt.Errorf("registering engine metrics: %w", err)
	}

	a := &api{engine: cfg.Engine, now: cfg.Now, mode: cfg.Mode}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(accessLog(rm))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/initiatives", func(r chi.Router) {
		r.Get("/", a.handle(a.listInitiatives))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.handle(a.getInitiative))
			r.Get("/view", a.handle(a.view))
			r.Get("/weeks", a.handle(a.weeks))
			r.Get("/positions", a.handle(a.positions))
			r.Get("/bounds", a.handle(a.bounds))
			r.Get("/focus", a.handle(a.focus))
			r.Get("/edges", a.handle(a.edges))
		})
	})
	return r, nil
}

// ListenAndServe serves h on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

type handlerFunc func(r *http.Request) (any, error)

func (a *api) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := fn(r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(body); err != nil {
		debug.Log("serve: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
	case errors.Is(err, timeline.ErrUnknownInitiative):
		ae = &apiError{status: http.StatusNotFound, Body: apiErrorBody{Code: "not_found", Message: err.Error()}}
	default:
		ae = &apiError{status: http.StatusInternalServerError, Body: apiErrorBody{Code: "internal", Message: err.Error()}}
	}
	writeJSON(w, ae.status, ae)
}

func accessLog(rm *requestMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
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
			rm.observe(route, status, elapsed)
			debug.Log("serve: %s %s %d %s", r.Method, r.URL.Path, status, elapsed)
		})
	}
}

// initiativeSummary is an initiative with its event count.
type initiativeSummary struct {
	model.Initiative
	Events int `json:"events"`
}

func (a *api) listInitiatives(r *http.Request) (any, error) {
	inits := a.engine.Initiatives()
	out := make([]initiativeSummary, 0, len(inits))
	for _, in := range inits {
		evs, _ := a.engine.Events(in.ID)
		out = append(out, initiativeSummary{Initiative: in, Events: len(evs)})
	}
	return out, nil
}

func (a *api) getInitiative(r *http.Request) (any, error) {
	id := chi.URLParam(r, "id")
	in, err := a.engine.Initiative(id)
	if err != nil {
		return nil, err
	}
	evs, err := a.engine.Events(id)
	if err != nil {
		return nil, err
	}
	return struct {
		initiativeSummary
		Items []model.Event `json:"items"`
	}{initiativeSummary{in, len(evs)}, evs}, nil
}

func (a *api) view(r *http.Request) (any, error) {
	q := r.URL.Query()
	zoom, err := floatParam(q.Get("zoom"), 1)
	if err != nil {
		return nil, err
	}
	width, err := floatParam(q.Get("width"), 0)
	if err != nil {
		return nil, err
	}
	pan, err := floatParam(q.Get("pan"), 0)
	if err != nil {
		return nil, err
	}
	mode, err := a.modeParam(q.Get("mode"))
	if err != nil {
		return nil, err
	}
	now, err := a.nowParam(q.Get("now"))
	if err != nil {
		return nil, err
	}
	return a.engine.View(chi.URLParam(r, "id"), timeline.ViewRequest{
		Zoom:           zoom,
		Pan:            pan,
		ContainerWidth: width,
		FocusedEventID: q.Get("event"),
		Mode:           mode,
		Now:            now,
	})
}

func (a *api) weeks(r *http.Request) (any, error) {
	now, err := a.nowParam(r.URL.Query().Get("now"))
	if err != nil {
		return nil, err
	}
	return a.engine.WeekBuckets(chi.URLParam(r, "id"), now)
}

func (a *api) positions(r *http.Request) (any, error) {
	zoom, err := floatParam(r.URL.Query().Get("zoom"), 1)
	if err != nil {
		return nil, err
	}
	return a.engine.ContinuousPositions(chi.URLParam(r, "id"), zoom)
}

func (a *api) bounds(r *http.Request) (any, error) {
	q := r.URL.Query()
	width, err := floatParam(q.Get("width"), 0)
	if err != nil {
		return nil, err
	}
	zoom, err := floatParam(q.Get("zoom"), 1)
	if err != nil {
		return nil, err
	}
	return a.engine.DragBounds(chi.URLParam(r, "id"), width, zoom)
}

func (a *api) focus(r *http.Request) (any, error) {
	return a.engine.FocusFlags(chi.URLParam(r, "id"), r.URL.Query().Get("event"))
}

func (a *api) edges(r *http.Request) (any, error) {
	q := r.URL.Query()
	mode, err := a.modeParam(q.Get("mode"))
	if err != nil {
		return nil, err
	}
	edges, err := a.engine.ConnectionEdges(chi.URLParam(r, "id"), mode, q.Get("event"))
	if err != nil {
		return nil, err
	}
	if edges == nil {
		return []struct{}{}, nil
	}
	return edges, nil
}

func (a *api) modeParam(raw string) (timeline.VisualizationMode, error) {
	if strings.TrimSpace(raw) == "" {
		return a.mode, nil
	}
	m, err := timeline.ParseMode(raw)
	if err != nil {
		return "", badRequest("%v", err)
	}
	return m, nil
}

func (a *api) nowParam(raw string) (time.Time, error) {
	if raw == "" {
		return a.now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, badRequest("invalid now %q: want RFC 3339", raw)
	}
	return t, nil
}

func floatParam(raw string, fallback float64) (float64, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, badRequest("invalid number %q", raw)
	}
	return v, nil
}
