package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archie/app/usecase"
	"archie/internal/domain/entity"
	"archie/internal/infrastructure/rules"
	"archie/internal/infrastructure/validator"
)

type scriptedGateway struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
}

func (g *scriptedGateway) Complete(ctx context.Context, messages []entity.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	out := g.responses[0]
	g.responses = g.responses[1:]
	return out, nil
}

func newTestHandler(gw *scriptedGateway) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := usecase.NewDiagramService(rules.NewRegistry(), gw, validator.NewArtifactAnalyzer(), logger)
	return NewDiagramHandler(svc, logger).Handler()
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Message string            `json:"message"`
		Code    string            `json:"code"`
		Details []json.RawMessage `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelope
	if strings.Contains(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
		assertEnvelopeInvariant(t, rr.Body.Bytes())
	}
	return rr, env
}

// assertEnvelopeInvariant checks that exactly one of data and error is non-null.
func assertEnvelopeInvariant(t *testing.T, body []byte) {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &raw))
	dataNull := string(raw["data"]) == "null" || raw["data"] == nil
	errNull := string(raw["error"]) == "null" || raw["error"] == nil
	assert.NotEqual(t, dataNull, errNull, "exactly one of data/error must be set: %s", body)
}

func TestGenerate_ClassPlantUML(t *testing.T) {
	gw := &scriptedGateway{responses: []string{"```plantuml\n@startuml\nclass Student\n@enduml\n```"}}
	h := newTestHandler(gw)

	rr, env := do(t, h, http.MethodPost, "/generate",
		`{"diagramType":"CLASS","diagramLanguage":"PLANTUML","requirementsText":"students","classes":[{"className":"Student","attributes":[{"name":"id","type":"int","nature":"Identifying","required":true}],"relationships":[]}]}`,
		map[string]string{"X-Correlation-ID": "abc-123"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Correlation-ID"))
	assert.Equal(t, StatusSuccess, env.Status)
	assert.Nil(t, env.Error)

	var data entity.DiagramResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, strings.HasPrefix(data.DiagramCode, "@startuml"))
	assert.True(t, data.IsRenderable)
	assert.Equal(t, "abc-123", data.CorrelationID)
}

func TestGenerate_Database(t *testing.T) {
	gw := &scriptedGateway{responses: []string{
		"@startuml\nentity Student {}\n@enduml",
		"### SQL\nCREATE TABLE student (id INT);\n\n### NoSQL\ndb.createCollection(\"student\")",
	}}
	h := newTestHandler(gw)

	rr, env := do(t, h, http.MethodPost, "/generate", `{"diagramType":"DATABASE","requirementsText":"students"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var data entity.DiagramResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Contains(t, data.DiagramCode, "### SQL")
	assert.Contains(t, data.DiagramCode, "### NoSQL")
	assert.False(t, data.IsRenderable)
	assert.Equal(t, "SQL/NoSQL", data.DiagramLanguage)
	assert.Equal(t, 2, gw.calls)
}

func TestGenerate_API(t *testing.T) {
	gw := &scriptedGateway{responses: []string{"openapi: 3.1.0\npaths: {}\n"}}
	h := newTestHandler(gw)

	rr, env := do(t, h, http.MethodPost, "/generate", `{"diagramType":"API","requirementsText":"students"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var data entity.DiagramResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "OPENAPI", data.DiagramLanguage)
	assert.Equal(t, 1, gw.calls)
}

func TestGenerate_MissingRequirementsText(t *testing.T) {
	gw := &scriptedGateway{}
	h := newTestHandler(gw)

	rr, env := do(t, h, http.MethodPost, "/generate", `{"diagramType":"CLASS","diagramLanguage":"PLANTUML"}`, nil)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, StatusFailure, env.Status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "Invalid request parameters", env.Error.Message)
	require.Len(t, env.Error.Details, 1)
	assert.Contains(t, string(env.Error.Details[0]), `"field":"requirementsText"`)
	assert.Zero(t, gw.calls)
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
}

func TestGenerate_InvalidEnums(t *testing.T) {
	h := newTestHandler(&scriptedGateway{})

	rr, env := do(t, h, http.MethodPost, "/generate",
		`{"diagramType":"PIE","diagramLanguage":"DOT","requirementsText":"x","classes":[{"className":"","attributes":[{"name":"a","nature":"Weird"}]}]}`, nil)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotNil(t, env.Error)
	details := make([]string, 0, len(env.Error.Details))
	for _, d := range env.Error.Details {
		details = append(details, string(d))
	}
	joined := strings.Join(details, "\n")
	assert.Contains(t, joined, `"field":"diagramType"`)
	assert.NotContains(t, joined, `"field":"diagramLanguage"`)
	assert.Contains(t, joined, `"field":"classes[0].className"`)
	assert.Contains(t, joined, `"field":"classes[0].attributes[0].nature"`)
}

func TestGenerate_UnknownNotationFallsBackToPlantUML(t *testing.T) {
	gw := &scriptedGateway{responses: []string{"@startuml\nclass Student\n@enduml"}}

	rr, env := do(t, newTestHandler(gw), http.MethodPost, "/generate",
		`{"diagramType":"CLASS","diagramLanguage":"GRAPHVIZ","requirementsText":"students"}`, nil)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var data entity.DiagramResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "PLANTUML", data.DiagramLanguage)
	assert.True(t, strings.HasPrefix(data.DiagramCode, "@startuml"))
	assert.Equal(t, 1, gw.calls)
}

func TestGenerate_DerivedKindIgnoresLanguage(t *testing.T) {
	gw := &scriptedGateway{responses: []string{"openapi: 3.1.0\npaths: {}\n"}}

	rr, env := do(t, newTestHandler(gw), http.MethodPost, "/generate",
		`{"diagramType":"API","diagramLanguage":"OPENAPI","requirementsText":"students"}`, nil)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var data entity.DiagramResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, entity.LanguageOpenAPI, data.DiagramLanguage)
}

func TestRefine_DatabaseRoundTripsItsLanguage(t *testing.T) {
	gw := &scriptedGateway{responses: []string{"### SQL\nCREATE TABLE student (id INT, name TEXT);\n\n### NoSQL\ndb.createCollection(\"student\")"}}
	body := `{"diagramType":"DATABASE","diagramLanguage":"SQL/NoSQL","existingCode":"### SQL\nCREATE TABLE student (id INT);","userInstruction":"add name"}`

	rr, env := do(t, newTestHandler(gw), http.MethodPost, "/refine", body, nil)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var data entity.DiagramResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, entity.LanguageDatabase, data.DiagramLanguage)
	assert.False(t, data.IsRenderable)
	assert.Equal(t, 1, gw.calls)
}

func TestGenerate_MalformedJSON(t *testing.T) {
	rr, env := do(t, newTestHandler(&scriptedGateway{}), http.MethodPost, "/generate", `{"diagramType":`, nil)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestGenerate_CompletionFailure(t *testing.T) {
	gw := &scriptedGateway{err: entity.NewEmptyResponseError()}

	rr, env := do(t, newTestHandler(gw), http.MethodPost, "/generate", `{"diagramType":"CLASS","requirementsText":"x"}`, nil)

	require.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, StatusFailure, env.Status)
	assert.Equal(t, "LLM_PROVIDER_ERROR", env.Error.Code)
	assert.Equal(t, "LLM returned an empty response.", env.Error.Message)
}

func TestGenerate_UnclassifiedFailure(t *testing.T) {
	gw := &scriptedGateway{err: errors.New("disk on fire")}

	rr, env := do(t, newTestHandler(gw), http.MethodPost, "/generate", `{"diagramType":"CLASS","requirementsText":"x"}`, nil)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.Equal(t, "Internal Server Error", env.Error.Message)
	assert.NotContains(t, rr.Body.String(), "disk on fire")
}

func TestExtract_DegradedPayload(t *testing.T) {
	gw := &scriptedGateway{responses: []string{"I cannot comply"}}

	rr, env := do(t, newTestHandler(gw), http.MethodPost, "/extract", `{"requirementsText":"a library","projectName":"Lib"}`, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, StatusSuccess, env.Status)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, []any{}, data["classes"])
	assert.Equal(t, "Failed to parse AI response into JSON", data["error"])
	assert.Equal(t, "I cannot comply", data["raw_snippet"])
	assert.Equal(t, "Lib", data["projectName"])
}

func TestExtract_ModelReturnsStatusKey(t *testing.T) {
	// A parsed extraction never carries a status key, so it is always wrapped.
	gw := &scriptedGateway{responses: []string{`{"status":"ok","projectName":"Lib","classes":[]}`}}

	rr, env := do(t, newTestHandler(gw), http.MethodPost, "/extract", `{"requirementsText":"x"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, StatusSuccess, env.Status)
	assert.NotContains(t, string(env.Data), `"status"`)
}

func TestRefine_AcceptsEitherCodeField(t *testing.T) {
	for _, field := range []string{"existingDiagramCode", "existingCode"} {
		t.Run(field, func(t *testing.T) {
			gw := &scriptedGateway{responses: []string{"@startuml\nA->B\n@enduml"}}
			body := `{"diagramType":"SEQUENCE","diagramLanguage":"PLANTUML","` + field + `":"@startuml\nA->B\n@enduml","userInstruction":"rename"}`

			rr, env := do(t, newTestHandler(gw), http.MethodPost, "/refine", body, map[string]string{"X-Correlation-ID": "ref-7"})
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			var data entity.DiagramResponse
			require.NoError(t, json.Unmarshal(env.Data, &data))
			assert.Equal(t, "ref-7", data.CorrelationID)
			assert.True(t, data.IsRenderable)
		})
	}
}

func TestRefine_MissingCode(t *testing.T) {
	rr, env := do(t, newTestHandler(&scriptedGateway{}), http.MethodPost, "/refine",
		`{"diagramType":"API","userInstruction":"add paging"}`, nil)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Len(t, env.Error.Details, 2)
}

func TestCorrelationHeader_FreshPerRequest(t *testing.T) {
	h := newTestHandler(&scriptedGateway{})

	first, _ := do(t, h, http.MethodGet, "/health", "", nil)
	second, _ := do(t, h, http.MethodGet, "/health", "", nil)

	a, b := first.Header().Get("X-Correlation-ID"), second.Header().Get("X-Correlation-ID")
	_, err := uuid.Parse(a)
	require.NoError(t, err)
	_, err = uuid.Parse(b)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRouting_FailuresAreEnveloped(t *testing.T) {
	h := newTestHandler(&scriptedGateway{})

	cases := []struct {
		method, path string
		status       int
		code         string
	}{
		{http.MethodGet, "/generate", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{http.MethodDelete, "/refine", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{http.MethodGet, "/nowhere", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr, env := do(t, h, tc.method, tc.path, "", nil)

			require.Equal(t, tc.status, rr.Code)
			assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
			assert.Equal(t, StatusFailure, env.Status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
			assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
		})
	}
}

func TestHealth_IsEnveloped(t *testing.T) {
	rr, env := do(t, newTestHandler(&scriptedGateway{}), http.MethodGet, "/health", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, StatusSuccess, env.Status)
	assert.Contains(t, string(env.Data), `"ok":true`)
}

func TestEnvelope_PassesThroughEnvelopedBodies(t *testing.T) {
	h := Envelope(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "SUCCESS", "data": 1, "error": nil})
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.JSONEq(t, `{"status":"SUCCESS","data":1,"error":null}`, rr.Body.String())
}

func TestEnvelope_IsIdempotent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []int{1, 2})
	})

	once := httptest.NewRecorder()
	Envelope(logger)(inner).ServeHTTP(once, httptest.NewRequest(http.MethodGet, "/", nil))
	twice := httptest.NewRecorder()
	Envelope(logger)(Envelope(logger)(inner)).ServeHTTP(twice, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.JSONEq(t, `{"status":"SUCCESS","data":[1,2],"error":null}`, once.Body.String())
	assert.JSONEq(t, once.Body.String(), twice.Body.String())
}

func TestEnvelope_LeavesNonJSONAlone(t *testing.T) {
	h := Envelope(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("# HELP x\n"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "# HELP x\n", rr.Body.String())
}

func TestRecovery_PanicBecomesInternalError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Correlation(logger)(Recovery(logger)(Envelope(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))))

	rr, env := do(t, h, http.MethodGet, "/", "", map[string]string{"X-Correlation-ID": "p-1"})

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.Equal(t, "p-1", rr.Header().Get("X-Correlation-ID"))
}
