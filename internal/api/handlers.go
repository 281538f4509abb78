package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/alejandroruanova/outage-analytics-service/internal/app"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/analytics"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/assistant"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/criticality"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/locator"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/prepare"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/export"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/parsers"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/queue"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/storage"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/config"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// Multipart field names of the uploaded workbooks.
const (
	FieldOutages    = "outages"
	FieldResistance = "resistance"
	FieldLocator    = "locator"
	FieldBase       = "base"
	FieldUpdate     = "update"
)

// syncOutputName is the file name of a merged workbook in the outputs area.
const syncOutputName = "merged.xlsx"

const readinessTimeout = 2 * time.Second

// SyncEnqueuer queues workbook sync runs.
type SyncEnqueuer interface {
	EnqueueSync(ctx context.Context, p queue.SyncPayload) (*asynq.TaskInfo, error)
}

// HealthChecker reports the status of a backing service as {"status": "up"|"down", ...}.
type HealthChecker interface {
	Health(ctx context.Context) map[string]interface{}
}

// Deps are the collaborators of the HTTP handlers. Queue and Checks are optional.
type Deps struct {
	Analyzer       *app.Analyzer
	Storage        *storage.LocalStorage
	Queue          SyncEnqueuer
	Data           config.DataConfig
	MaxUploadBytes int64
	Checks         map[string]HealthChecker
}

// Handler serves the /api/v1 routes
type Handler struct {
	analyzer  *app.Analyzer
	storage   *storage.LocalStorage
	queue     SyncEnqueuer
	data      config.DataConfig
	maxUpload int64
	checks    map[string]HealthChecker
	logger    *slog.Logger
}

// NewHandler creates the API handlers
func NewHandler(deps Deps, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = parsers.DefaultParserConfig().MaxFileSize
	}
	return &Handler{
		analyzer:  deps.Analyzer,
		storage:   deps.Storage,
		queue:     deps.Queue,
		data:      deps.Data,
		maxUpload: deps.MaxUploadBytes,
		checks:    deps.Checks,
		logger:    logger,
	}
}

// source returns the uploaded workbook in field, or the configured fallback
// path when nothing was uploaded.
func (h *Handler) source(c *gin.Context, field, fallback string) (parsers.Source, error) {
	header, err := c.FormFile(field)
	switch {
	case err == nil:
		f, err := header.Open()
		if err != nil {
			return nil, apperrors.InvalidFile("cannot read uploaded " + field + " workbook")
		}
		defer f.Close()
		return parsers.ReadSource(header.Filename, f, h.maxUpload)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		if fallback != "" {
			return parsers.NewPathSource(fallback), nil
		}
		return nil, apperrors.InvalidInput(field + " workbook is required")
	default:
		return nil, apperrors.BadRequest("invalid multipart form: " + err.Error())
	}
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidInput(fmt.Sprintf("%s must be an integer", key))
	}
	return n, nil
}

func parseNumber(key, raw string) (float64, error) {
	v, ok := prepare.ParseLocaleFloat(raw)
	if !ok {
		return 0, apperrors.InvalidInput(fmt.Sprintf("%s must be a number", key))
	}
	return v, nil
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Ready reports whether every backing service is up
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]interface{}, len(h.checks))
	for name, checker := range h.checks {
		result := checker.Health(ctx)
		checks[name] = result
		if result["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

// Criticality ranks towers from an outages and a resistance workbook.
// ?format=csv returns the top rows as CSV.
func (h *Handler) Criticality(c *gin.Context) {
	top, err := queryInt(c, "top", criticality.DefaultTopN)
	if err != nil {
		h.respondError(c, err)
		return
	}
	outages, err := h.source(c, FieldOutages, h.data.OutagesPath)
	if err != nil {
		h.respondError(c, err)
		return
	}
	resistance, err := h.source(c, FieldResistance, h.data.ResistancePath)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.analyzer.Criticality(c.Request.Context(), outages, resistance, top)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if strings.EqualFold(c.Query("format"), "csv") {
		var buf bytes.Buffer
		if err := export.WriteScores(&buf, result.Top); err != nil {
			h.respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="criticidade.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
		return
	}
	c.JSON(http.StatusOK, result)
}

// Analytics returns the outage dashboard series for ?concession=&year=
func (h *Handler) Analytics(c *gin.Context) {
	year, err := analytics.ParseYear(c.Query("year"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	src, err := h.source(c, FieldOutages, h.data.OutagesPath)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filter := analytics.Filter{Concession: strings.TrimSpace(c.Query("concession")), Year: year}
	report, err := h.analyzer.Analytics(c.Request.Context(), src, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Grounding returns the resistance dashboard for ?line=&min=&max=
func (h *Handler) Grounding(c *gin.Context) {
	var rng *analytics.Bounds
	if rawMin, rawMax := c.Query("min"), c.Query("max"); rawMin != "" || rawMax != "" {
		lo, err := parseNumber("min", rawMin)
		if err != nil {
			h.respondError(c, err)
			return
		}
		hi, err := parseNumber("max", rawMax)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if lo > hi {
			h.respondError(c, apperrors.InvalidInput("min must not exceed max"))
			return
		}
		rng = &analytics.Bounds{Min: lo, Max: hi}
	}

	src, err := h.source(c, FieldResistance, h.data.ResistancePath)
	if err != nil {
		h.respondError(c, err)
		return
	}
	report, err := h.analyzer.Grounding(c.Request.Context(), src, c.Query("line"), rng)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Catalog lists the concessions and their lines
func (h *Handler) Catalog(c *gin.Context) {
	src, err := h.source(c, FieldLocator, h.data.LocatorPath)
	if err != nil {
		h.respondError(c, err)
		return
	}
	catalog, err := h.analyzer.Catalog(c.Request.Context(), src)
	if err != nil {
		h.respondError(c, err)
		return
	}

	lines := make(map[string][]string)
	for _, concession := range catalog.Concessions() {
		lines[concession] = catalog.Lines(concession)
	}
	c.JSON(http.StatusOK, gin.H{"concessions": catalog.Concessions(), "lines": lines})
}

// Locate draws the span around form km on line lt
func (h *Handler) Locate(c *gin.Context) {
	km, err := parseNumber("km", c.PostForm("km"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	req := locator.Request{
		Concession: strings.TrimSpace(c.PostForm("concession")),
		Line:       strings.TrimSpace(c.PostForm("lt")),
		Phase:      strings.TrimSpace(c.PostForm("phase")),
		SearchKm:   km,
	}
	if err := req.Validate(); err != nil {
		h.respondError(c, err)
		return
	}

	src, err := h.source(c, FieldLocator, h.data.LocatorPath)
	if err != nil {
		h.respondError(c, err)
		return
	}
	result, err := h.analyzer.Locate(c.Request.Context(), src, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type askRequest struct {
	SessionID string `json:"session_id" form:"session_id"`
	Model     string `json:"model" form:"model"`
	Question  string `json:"question" form:"question"`
}

func parseSessionID(raw string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput("session_id must be a UUID")
	}
	return id, nil
}

// Ask answers a question about the outages workbook. The body is JSON, or a
// multipart form carrying the same fields plus an outages upload.
func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respondError(c, apperrors.InvalidInput("invalid request body"))
		return
	}
	sessionID, err := parseSessionID(req.SessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.analyzer.AssistantConfigured() {
		h.respondError(c, apperrors.LLMNotConfigured())
		return
	}

	src, err := h.source(c, FieldOutages, h.data.OutagesPath)
	if err != nil {
		h.respondError(c, err)
		return
	}
	answer, err := h.analyzer.Ask(c.Request.Context(), src, assistant.Question{
		SessionID: sessionID,
		Model:     req.Model,
		Text:      req.Question,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// Conversation returns the history of a session
func (h *Handler) Conversation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		h.respondError(c, apperrors.InvalidInput("session_id must be a UUID"))
		return
	}
	conv, err := h.analyzer.Conversation(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// ResetConversation clears the history of a session
func (h *Handler) ResetConversation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		h.respondError(c, apperrors.InvalidInput("session_id must be a UUID"))
		return
	}
	if err := h.analyzer.ResetConversation(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// storeUpload saves the workbook in field under uploadID and returns its path
func (h *Handler) storeUpload(c *gin.Context, uploadID, field string) (string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", apperrors.InvalidInput(field + " workbook is required")
	}
	if header.Size > h.maxUpload {
		return "", apperrors.FileTooLarge((h.maxUpload + 1<<20 - 1) >> 20)
	}
	f, err := header.Open()
	if err != nil {
		return "", apperrors.InvalidFile("cannot read uploaded " + field + " workbook")
	}
	defer f.Close()

	name := field + "_" + filepath.Base(header.Filename)
	meta, err := h.storage.SaveUpload(c.Request.Context(), uploadID, name, f)
	if err != nil {
		return "", err
	}
	return meta.StoredPath, nil
}

// Sync stores the base and update workbooks and merges them. With a queue
// the merge runs on the worker and 202 is returned; otherwise it runs inline.
func (h *Handler) Sync(c *gin.Context) {
	uploadID := uuid.New().String()

	basePath, err := h.storeUpload(c, uploadID, FieldBase)
	if err != nil {
		h.respondError(c, err)
		return
	}
	updatePath, err := h.storeUpload(c, uploadID, FieldUpdate)
	if err != nil {
		h.respondError(c, err)
		return
	}
	outputPath, err := h.storage.OutputPath(uploadID, syncOutputName)
	if err != nil {
		h.respondError(c, err)
		return
	}

	payload := queue.SyncPayload{
		BasePath:   basePath,
		UpdatePath: updatePath,
		OutputPath: outputPath,
		Trigger:    "api",
	}
	output := "/api/v1/sync/" + uploadID

	if h.queue == nil {
		if err := h.analyzer.SyncFiles(c.Request.Context(), payload); err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"upload_id": uploadID, "status": "completed", "output": output})
		return
	}

	info, err := h.queue.EnqueueSync(c.Request.Context(), payload)
	if err != nil {
		if !apperrors.IsAppError(err) {
			err = apperrors.QueueError(err)
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"upload_id": uploadID,
		"status":    "queued",
		"task_id":   info.ID,
		"queue":     info.Queue,
		"output":    output,
	})
}

// SyncOutput downloads a merged workbook
func (h *Handler) SyncOutput(c *gin.Context) {
	uploadID := c.Param("upload_id")
	if _, err := uuid.Parse(uploadID); err != nil {
		h.respondError(c, apperrors.InvalidInput("upload_id must be a UUID"))
		return
	}
	data, err := h.storage.GetOutput(c.Request.Context(), uploadID, syncOutputName)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, syncOutputName))
	c.Data(http.StatusOK, storage.ContentType(syncOutputName), data)
}
