package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"archie/app/usecase"
	"archie/internal/domain/entity"
	"archie/internal/infrastructure/metrics"
)

const maxBodyBytes = 1 << 20

type DiagramHandler struct {
	diagrams usecase.DiagramUsecase
	logger   *slog.Logger
}

func NewDiagramHandler(diagrams usecase.DiagramUsecase, logger *slog.Logger) *DiagramHandler {
	return &DiagramHandler{
		diagrams: diagrams,
		logger:   logger.With("component", "transport"),
	}
}

// Handler returns the full HTTP stack: correlation scope, panic recovery and the response
// envelope around the routed endpoints.
func (h *DiagramHandler) Handler() http.Handler {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return Correlation(h.logger)(Recovery(h.logger)(Envelope(h.logger)(r)))
}

func (h *DiagramHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/generate", h.withMetrics(h.serve(h.handleGenerate))).Methods(http.MethodPost)
	r.HandleFunc("/extract", h.withMetrics(h.serve(h.handleExtract))).Methods(http.MethodPost)
	r.HandleFunc("/refine", h.withMetrics(h.serve(h.handleRefine))).Methods(http.MethodPost)
	r.HandleFunc("/health", h.withMetrics(h.serve(h.handleHealth))).Methods(http.MethodGet)

	// Prometheus
	r.Handle("/metrics", metrics.Handler())

	r.NotFoundHandler = routeFailure(http.StatusNotFound, entity.FailureNotFound, "Not Found")
	r.MethodNotAllowedHandler = routeFailure(http.StatusMethodNotAllowed, entity.FailureMethodNotAllowed, "Method Not Allowed")
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// serve turns a returned error into the failure envelope.
func (h *DiagramHandler) serve(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			h.writeFailure(w, r, err)
		}
	}
}

// withMetrics records count, latency and error status per route template.
func (h *DiagramHandler) withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		metrics.ObserveHTTPRequest(r.Method, path, rw.status, strconv.Itoa(rw.status), time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &entity.ValidationError{Fields: []entity.FieldError{{
				Field: "body", Rule: "max_bytes", Message: "request body too large",
			}}}
		}
		return &entity.ValidationError{Fields: []entity.FieldError{{
			Field: "body", Rule: "json", Message: "malformed JSON body: " + err.Error(),
		}}}
	}
	return validateStruct(dst)
}

// POST /generate
func (h *DiagramHandler) handleGenerate(w http.ResponseWriter, r *http.Request) error {
	var req entity.GenerateRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	resp, err := h.diagrams.Generate(r.Context(), req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

// POST /extract
func (h *DiagramHandler) handleExtract(w http.ResponseWriter, r *http.Request) error {
	var req entity.ExtractionRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	out, err := h.diagrams.Extract(r.Context(), req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

// POST /refine
func (h *DiagramHandler) handleRefine(w http.ResponseWriter, r *http.Request) error {
	var req entity.RefineRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	resp, err := h.diagrams.Refine(r.Context(), req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

// GET /health
func (h *DiagramHandler) handleHealth(w http.ResponseWriter, r *http.Request) error {
	status := map[string]interface{}{
		"ok": true,
		"ts": time.Now().UTC(),
	}
	writeJSON(w, http.StatusOK, status)
	return nil
}
