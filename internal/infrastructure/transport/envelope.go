package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"archie/internal/domain/entity"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

type ErrorBody struct {
	Message string             `json:"message"`
	Code    entity.FailureKind `json:"code"`
	Details any                `json:"details,omitempty"`
}

// ResponseEnvelope is the shape of every JSON response. Exactly one of Data and Error is set.
type ResponseEnvelope struct {
	Status string     `json:"status"`
	Data   any        `json:"data"`
	Error  *ErrorBody `json:"error"`
}

func success(data json.RawMessage) ResponseEnvelope {
	return ResponseEnvelope{Status: StatusSuccess, Data: data}
}

// failure classifies err and returns the HTTP status with the client-visible envelope.
func failure(err error) (int, ResponseEnvelope) {
	env := ResponseEnvelope{Status: StatusFailure}
	switch entity.Classify(err) {
	case entity.FailureValidation:
		body := &ErrorBody{Message: "Invalid request parameters", Code: entity.FailureValidation}
		if ve, ok := asValidation(err); ok {
			body.Details = ve.Fields
		}
		env.Error = body
		return http.StatusBadRequest, env
	case entity.FailureCompletion:
		env.Error = &ErrorBody{Message: completionMessage(err), Code: entity.FailureCompletion}
		return http.StatusBadGateway, env
	default:
		env.Error = &ErrorBody{Message: "Internal Server Error", Code: entity.FailureInternal}
		return http.StatusInternalServerError, env
	}
}

// routeFailure answers requests the router cannot dispatch with a FAILURE envelope.
func routeFailure(code int, kind entity.FailureKind, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, code, ResponseEnvelope{
			Status: StatusFailure,
			Error:  &ErrorBody{Message: message, Code: kind},
		})
	}
}

func asValidation(err error) (*entity.ValidationError, bool) {
	var ve *entity.ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

func completionMessage(err error) string {
	var ce *entity.CompletionError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}

func (h *DiagramHandler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	code, env := failure(err)
	switch env.Error.Code {
	case entity.FailureValidation:
		h.logger.ErrorContext(r.Context(), "validation error occurred", "path", r.URL.Path, "err", err)
	case entity.FailureCompletion:
		h.logger.ErrorContext(r.Context(), "LLM service error", "path", r.URL.Path, "err", err)
	default:
		h.logger.ErrorContext(r.Context(), "unhandled exception", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, code, env)
}

// Envelope wraps successful JSON bodies as {status: SUCCESS, data, error: null}. Bodies that
// already carry a top-level status key pass through untouched, as do non-200 and non-JSON
// responses.
func Envelope(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf := &bufferedWriter{header: http.Header{}, status: http.StatusOK}
			next.ServeHTTP(buf, r)

			body := buf.body.Bytes()
			if buf.status == http.StatusOK && strings.Contains(buf.header.Get("Content-Type"), "application/json") {
				if wrapped, ok := wrap(body); ok {
					body = wrapped
					buf.header.Del("Content-Length")
					logger.DebugContext(r.Context(), "stage transition", "to", entity.StageEnveloped)
				}
			}

			dst := w.Header()
			for k, v := range buf.header {
				dst[k] = v
			}
			w.WriteHeader(buf.status)
			_, _ = w.Write(body)
		})
	}
}

func wrap(body []byte) ([]byte, bool) {
	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, false
	}
	if obj, ok := probe.(map[string]any); ok {
		if _, enveloped := obj["status"]; enveloped {
			return nil, false
		}
	}
	out, err := json.Marshal(success(json.RawMessage(bytes.TrimSpace(body))))
	if err != nil {
		return nil, false
	}
	return append(out, '\n'), true
}

// bufferedWriter holds the response until the envelope decision is made.
type bufferedWriter struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (b *bufferedWriter) Header() http.Header {
	return b.header
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}
