package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rohmanhakim/prompt-loader/internal/metadata"
	"github.com/rohmanhakim/prompt-loader/internal/promptstore"
)

/*
Server exposes the template store over HTTP.

Routes
- GET    <pathPrefix>{path}    raw template files from templatesDir
- POST   /api/render/{key}     render with a JSON object as context
- GET    /api/preview/{key}    render with query parameters, as sanitized HTML
- DELETE /api/cache/{key}      invalidate one key
- DELETE /api/cache            clear the cache
- GET    /api/errors           retained error records
- GET    /healthz

The default fetcher targets <pathPrefix> on this same server, so one
process both hosts the templates and renders them.
*/
type Server struct {
	store        *promptstore.Store
	recorder     *metadata.Recorder
	templatesDir string
	pathPrefix   string
	htmlPolicy   *bluemonday.Policy
}

// New creates a Server. recorder may be nil, in which case /api/errors
// always answers with an empty list.
func New(
	store *promptstore.Store,
	recorder *metadata.Recorder,
	templatesDir string,
	pathPrefix string,
) *Server {
	htmlPolicy := bluemonday.UGCPolicy()
	htmlPolicy.RequireNoFollowOnLinks(false)
	htmlPolicy.RequireNoFollowOnFullyQualifiedLinks(true)
	htmlPolicy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Server{
		store:        store,
		recorder:     recorder,
		templatesDir: templatesDir,
		pathPrefix:   normalizePrefix(pathPrefix),
		htmlPolicy:   htmlPolicy,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	// Registered on the root router so a method mismatch answers 405.
	r.HandleFunc("/api/render/{key:.+}", s.handleRender).Methods(http.MethodPost)
	r.HandleFunc("/api/preview/{key:.+}", s.handlePreview).Methods(http.MethodGet)
	r.HandleFunc("/api/cache/{key:.+}", s.handleInvalidate).Methods(http.MethodDelete)
	r.HandleFunc("/api/cache", s.handleClearCache).Methods(http.MethodDelete)
	r.HandleFunc("/api/errors", s.handleErrors).Methods(http.MethodGet)
	r.HandleFunc("/api/errors", s.handleClearErrors).Methods(http.MethodDelete)

	files := http.StripPrefix(s.pathPrefix, http.FileServer(http.Dir(s.templatesDir)))
	r.PathPrefix(s.pathPrefix).Handler(files).Methods(http.MethodGet, http.MethodHead)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		glog.Infof("serving templates from %s on %s%s", s.templatesDir, addr, s.pathPrefix)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func normalizePrefix(prefix string) string {
	trimmed := strings.Trim(prefix, "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed + "/"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		glog.V(1).Infof("%s %s %d %s", req.Method, req.URL.Path, rec.status, time.Since(start))
	})
}
