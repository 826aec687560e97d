// Package server exposes request-time resolution over HTTP next to the
// static public directory, for dev servers and SSR sites that cannot call
// the resolver in-process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"siteimg/discovery"
	"siteimg/logging"
	"siteimg/metrics"
	"siteimg/profile"
	"siteimg/resolver"
)

// DefaultProfile is used by /_img when no profile is given.
const DefaultProfile = "cover-1x"

// Server handles resolve requests and serves the public directory.
type Server struct {
	addr      string
	publicDir string
	resolver  *resolver.Resolver
	metrics   *metrics.Metrics
}

// NewServer creates a new resolve server
func NewServer(addr, publicDir string, r *resolver.Resolver, m *metrics.Metrics) *Server {
	return &Server{addr: addr, publicDir: publicDir, resolver: r, metrics: m}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(accessLog)

	r.Get("/_img", s.handleImage)
	r.Get("/_gallery", s.handleGallery)
	r.Get("/_profiles", s.handleProfiles)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.Handle("/*", http.FileServer(http.Dir(s.publicDir)))
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.addr).Str("public", s.publicDir).Msg("resolve server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logging.Info().Msg("resolve server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// handleImage redirects to the derivative of ?src= under ?profile=.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	if src == "" {
		http.Error(w, "src is required", http.StatusBadRequest)
		return
	}
	name := r.URL.Query().Get("profile")
	if name == "" {
		name = DefaultProfile
	}
	if _, ok := profile.Lookup(name); !ok {
		http.Error(w, fmt.Sprintf("unknown profile %q", name), http.StatusBadRequest)
		return
	}

	url := s.resolver.ResolveNamed(src, name)
	// Remote and protocol-relative sources pass through the resolver
	// unchanged; never redirect off-site.
	if !discovery.IsLocalPath(url) {
		http.Error(w, "src must be a root-relative path", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.Redirect(w, r, url, http.StatusFound)
}

// handleGallery returns the sm/lg/lb URLs of ?src= as JSON.
func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	if src == "" {
		http.Error(w, "src is required", http.StatusBadRequest)
		return
	}
	urls, ok := s.resolver.Gallery(src)
	if !ok {
		http.Error(w, "gallery derivatives unavailable", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, urls)
}

type profileInfo struct {
	Name    string `json:"name"`
	Width   int    `json:"w"`
	Height  *int   `json:"h"`
	Fit     string `json:"fit"`
	Quality int    `json:"q"`
	Variant string `json:"variant"`
}

func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	var out []profileInfo
	for _, name := range profile.Names() {
		p, _ := profile.Lookup(name)
		out = append(out, profileInfo{
			Name:    p.Name,
			Width:   p.Width,
			Height:  p.Height,
			Fit:     string(p.Fit),
			Quality: p.Quality,
			Variant: p.Variant,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}
