package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/golang/glog"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/gorilla/mux"
	"github.com/rohmanhakim/prompt-loader/internal/metadata"
	"github.com/rohmanhakim/prompt-loader/internal/promptstore"
)

// maxContextBytes bounds the JSON render context accepted by /api/render.
const maxContextBytes = 1 << 20

type errorResponse struct {
	Error      string `json:"error"`
	Key        string `json:"key,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	StatusText string `json:"statusText,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	rc, err := decodeRenderContext(http.MaxBytesReader(w, r.Body, maxContextBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Key: key})
		return
	}

	rendered, result := s.store.LoadAndRender(r.Context(), key, rc)
	if result.IsFailure() {
		writeLoadFailure(w, result.Err())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Prompt-Cache", cacheHeader(result))
	_, _ = io.WriteString(w, rendered)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	rc := promptstore.RenderContext{}
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			rc[name] = values[0]
		}
	}

	rendered, result := s.store.LoadAndRender(r.Context(), key, rc)
	if result.IsFailure() {
		writeLoadFailure(w, result.Err())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Prompt-Cache", cacheHeader(result))
	_, _ = w.Write(s.markdownToSafeHTML([]byte(rendered)))
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.store.Invalidate(mux.Vars(r)["key"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.store.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	records := []metadata.ErrorRecord{}
	if s.recorder != nil {
		records = append(records, s.recorder.Errors()...)
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleClearErrors(w http.ResponseWriter, r *http.Request) {
	if s.recorder != nil {
		s.recorder.ClearErrors()
	}
	w.WriteHeader(http.StatusNoContent)
}

// markdownToSafeHTML renders a prompt as HTML for human review. A fresh
// parser is needed per call; gomarkdown parsers are single use.
func (s *Server) markdownToSafeHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return s.htmlPolicy.SanitizeBytes(markdown.ToHTML(md, p, renderer))
}

func decodeRenderContext(body io.Reader) (promptstore.RenderContext, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return promptstore.RenderContext{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	rc := promptstore.RenderContext{}
	if err := dec.Decode(&rc); err != nil {
		return nil, errors.New("render context must be a JSON object: " + err.Error())
	}
	return rc, nil
}

func writeLoadFailure(w http.ResponseWriter, loadErr *promptstore.LoadError) {
	writeJSON(w, http.StatusBadGateway, errorResponse{
		Error:      loadErr.Error(),
		Key:        loadErr.Key,
		StatusCode: loadErr.StatusCode,
		StatusText: loadErr.StatusText,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		glog.Errorf("failed to encode response: %+v", err)
	}
}

func cacheHeader(result promptstore.LoadResult) string {
	if result.FromCache() {
		return "hit"
	}
	return "miss"
}
