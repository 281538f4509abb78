package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandroruanova/outage-analytics-service/internal/app"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/assistant"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/export"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/queue"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/storage"
	"github.com/alejandroruanova/outage-analytics-service/internal/observability"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/config"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/logger"
)

const outagesCSV = "Concessão;Data;FT;Causa;Fase;Torre\n" +
	"JAURU;2024-03-01;LT A;Queimada;A;Torre 05\n" +
	"JAURU;2024-04-01;LT A;Queimada;A;T5\n" +
	"JAURU;2023-05-01;LT A;Outros;B;T7\n"

const resistanceCSV = "Linha de Transmissão;Torre;Resistência\n" +
	"LT A;005;12,5\n" +
	"LT A;5;7,5\n" +
	"LT A;T7;4\n"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCompleter struct{ reply string }

func (f *fakeCompleter) Complete(_ context.Context, _ assistant.CompletionRequest) (string, error) {
	return f.reply, nil
}

type fakeQueue struct {
	payloads []queue.SyncPayload
	err      error
}

func (q *fakeQueue) EnqueueSync(_ context.Context, p queue.SyncPayload) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.payloads = append(q.payloads, p)
	return &asynq.TaskInfo{ID: "task-1", Queue: queue.QueueCritical}, nil
}

type fakeCheck struct{ status string }

func (f fakeCheck) Health(context.Context) map[string]interface{} {
	return map[string]interface{}{"status": f.status}
}

type testEnv struct {
	router  *gin.Engine
	storage *storage.LocalStorage
	queue   *fakeQueue
}

func newEnv(t *testing.T, deps Deps, completer assistant.Completer) *testEnv {
	t.Helper()

	store, err := storage.NewLocalStorage(&storage.LocalStorageConfig{BasePath: t.TempDir()}, logger.Discard())
	require.NoError(t, err)

	deps.Analyzer = app.NewAnalyzer(app.Options{
		Completer: completer,
		Metrics:   observability.NewMetricsForTesting(),
	}, logger.Discard())
	deps.Storage = store

	h := NewHandler(deps, logger.Discard())
	env := &testEnv{router: NewRouter(h, logger.Discard()), storage: store}
	if q, ok := deps.Queue.(*fakeQueue); ok {
		env.queue = q
	}
	return env
}

type upload struct {
	field, name, content string
}

func multipartBody(t *testing.T, files []upload, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postMultipart(t *testing.T, path string, files []upload, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	return e.do(req)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	errBody, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "body has no error object: %s", rec.Body.String())
	return errBody["code"].(string)
}

func TestHealthAndReady(t *testing.T) {
	env := newEnv(t, Deps{Checks: map[string]HealthChecker{"redis": fakeCheck{"up"}}}, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])

	down := newEnv(t, Deps{Checks: map[string]HealthChecker{
		"redis":    fakeCheck{"up"},
		"postgres": fakeCheck{"down"},
	}}, nil)
	rec = down.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCriticality(t *testing.T) {
	env := newEnv(t, Deps{}, nil)
	files := []upload{
		{FieldOutages, "ocorrencias.csv", outagesCSV},
		{FieldResistance, "lt_torre.csv", resistanceCSV},
	}

	rec := env.postMultipart(t, "/api/v1/criticality?top=1", files, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result app.CriticalityResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Scores, 2)
	require.Len(t, result.Top, 1)
	assert.Equal(t, 5, result.Top[0].TowerID)
	assert.InDelta(t, 20.0, result.Top[0].Score, 1e-9)

	rec = env.postMultipart(t, "/api/v1/criticality?format=csv", files, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	scores, err := export.ReadScores(rec.Body)
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}

func TestCriticality_Errors(t *testing.T) {
	env := newEnv(t, Deps{}, nil)

	rec := env.postMultipart(t, "/api/v1/criticality", []upload{{FieldOutages, "o.csv", outagesCSV}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rec))

	rec = env.postMultipart(t, "/api/v1/criticality?top=abc", nil, nil)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rec))

	rec = env.postMultipart(t, "/api/v1/criticality", []upload{
		{FieldOutages, "o.txt", outagesCSV},
		{FieldResistance, "r.csv", resistanceCSV},
	}, nil)
	assert.Equal(t, "UNSUPPORTED_FORMAT", errorCode(t, rec))

	rec = env.postMultipart(t, "/api/v1/criticality", []upload{
		{FieldOutages, "o.csv", outagesCSV},
		{FieldResistance, "r.csv", "Torre;Supervisor\nT1;Ana\n"},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "SCHEMA_MISMATCH", errorCode(t, rec))
}

func TestCriticality_FileTooLarge(t *testing.T) {
	env := newEnv(t, Deps{MaxUploadBytes: 16}, nil)
	rec := env.postMultipart(t, "/api/v1/criticality", []upload{
		{FieldOutages, "o.csv", outagesCSV},
		{FieldResistance, "r.csv", resistanceCSV},
	}, nil)
	assert.Equal(t, "FILE_TOO_LARGE", errorCode(t, rec))
}

func TestAnalytics_ConfiguredWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocorrencias.csv")
	require.NoError(t, os.WriteFile(path, []byte(outagesCSV), 0644))
	env := newEnv(t, Deps{Data: config.DataConfig{OutagesPath: path}}, nil)

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/analytics?concession=JAURU&year=2024", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, 2.0, body["total"])

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/v1/analytics?year=vinte", nil))
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rec))
}

func TestGrounding(t *testing.T) {
	env := newEnv(t, Deps{}, nil)
	files := []upload{{FieldResistance, "lt.csv", resistanceCSV}}

	rec := env.postMultipart(t, "/api/v1/grounding?line=LT%20A&min=5&max=13", files, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2.0, decode(t, rec)["total"])

	rec = env.postMultipart(t, "/api/v1/grounding?min=9&max=1", files, nil)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rec))
}

func TestLocate_Validation(t *testing.T) {
	env := newEnv(t, Deps{}, nil)

	rec := env.postMultipart(t, "/api/v1/locate", nil, map[string]string{"lt": "LT A", "phase": "AG", "km": "abc"})
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rec))

	rec = env.postMultipart(t, "/api/v1/locate", nil, map[string]string{"lt": "LT A", "phase": "XG", "km": "12,5"})
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rec))

	// Valid request without a locator workbook.
	rec = env.postMultipart(t, "/api/v1/locate", nil, map[string]string{"lt": "LT A", "phase": "AG", "km": "12,5"})
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rec))
	assert.Contains(t, rec.Body.String(), FieldLocator)
}

func TestAsk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocorrencias.csv")
	require.NoError(t, os.WriteFile(path, []byte(outagesCSV), 0644))
	env := newEnv(t, Deps{Data: config.DataConfig{OutagesPath: path}}, &fakeCompleter{reply: "QMD"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"question":"Qual a causa?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var answer assistant.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Equal(t, "QMD", answer.Answer)
	require.NotEqual(t, uuid.Nil, answer.SessionID)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/ask/"+answer.SessionID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["history"], 2)

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/v1/ask/"+answer.SessionID.String(), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/ask/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"session_id":"nope","question":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, "INVALID_INPUT", errorCode(t, env.do(req)))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"model":"gpt-3","question":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, "INVALID_INPUT", errorCode(t, env.do(req)))
}

func TestAsk_MultipartUpload(t *testing.T) {
	env := newEnv(t, Deps{}, &fakeCompleter{reply: "ok"})
	rec := env.postMultipart(t, "/api/v1/ask",
		[]upload{{FieldOutages, "o.csv", outagesCSV}},
		map[string]string{"question": "Quantas ocorrências?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ok", decode(t, rec)["answer"])
}

func TestAsk_NotConfigured(t *testing.T) {
	env := newEnv(t, Deps{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"question":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "LLM_NOT_CONFIGURED", errorCode(t, rec))
}

const syncBaseCSV = "Concessão;Data;Hora;FT;Causa;Fase;Torre\n" +
	"JAURU;2024-03-01;10:15;LT X;Queimada;A;T1\n"

const syncUpdateCSV = "Concessão;Data;Hora;FT;Causa;Fase;Torre\n" +
	"JAURU;2024-05-01;08:00;LT X;Outros;B;T3\n"

func TestSync_Queued(t *testing.T) {
	env := newEnv(t, Deps{Queue: &fakeQueue{}}, nil)

	rec := env.postMultipart(t, "/api/v1/sync", []upload{
		{FieldBase, "base.csv", syncBaseCSV},
		{FieldUpdate, "update.csv", syncUpdateCSV},
	}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "task-1", body["task_id"])

	require.Len(t, env.queue.payloads, 1)
	p := env.queue.payloads[0]
	assert.Equal(t, "api", p.Trigger)
	assert.FileExists(t, p.BasePath)
	assert.FileExists(t, p.UpdatePath)
	assert.Equal(t, syncOutputName, filepath.Base(p.OutputPath))
	assert.Contains(t, p.OutputPath, body["upload_id"].(string))
}

func TestSync_QueueFailure(t *testing.T) {
	env := newEnv(t, Deps{Queue: &fakeQueue{err: errors.New("redis down")}}, nil)
	rec := env.postMultipart(t, "/api/v1/sync", []upload{
		{FieldBase, "base.csv", syncBaseCSV},
		{FieldUpdate, "update.csv", syncUpdateCSV},
	}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "QUEUE_ERROR", errorCode(t, rec))
}

func TestSync_InlineAndDownload(t *testing.T) {
	env := newEnv(t, Deps{}, nil)

	rec := env.postMultipart(t, "/api/v1/sync", []upload{
		{FieldBase, "base.csv", syncBaseCSV},
		{FieldUpdate, "update.csv", syncUpdateCSV},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "completed", body["status"])

	rec = env.do(httptest.NewRequest(http.MethodGet, body["output"].(string), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, storage.ContentType(syncOutputName), rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/sync/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.postMultipart(t, "/api/v1/sync", []upload{{FieldBase, "base.csv", syncBaseCSV}}, nil)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rec))
}
