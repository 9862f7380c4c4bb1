// Package resumeapi exposes upload, status and artifact read-back endpoints
// for resumes.
package resumeapi

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"resume-pipeline/internal/activitylog"
	"resume-pipeline/internal/artifacts"
	"resume-pipeline/internal/extract"
	"resume-pipeline/internal/matching"
	"resume-pipeline/internal/pipeline"
	"resume-pipeline/internal/resumes"
	"resume-pipeline/internal/shared/server/middleware"
	"resume-pipeline/internal/shared/server/respond"
	"resume-pipeline/internal/shared/storage/object"
	"resume-pipeline/internal/shared/telemetry"
	"resume-pipeline/internal/shared/util"
	"resume-pipeline/internal/users"
)

// DefaultMaxUploadBytes bounds an upload request body.
const DefaultMaxUploadBytes = 10 << 20

// Pipeline runs or schedules pipeline tasks. *pipeline.Dispatcher satisfies it.
type Pipeline interface {
	Enqueue(ctx context.Context, task pipeline.Task, resumeID, requestID string) error
	Run(ctx context.Context, task pipeline.Task, resumeID string) error
}

// Handler wires HTTP handlers to the resume collaborators.
type Handler struct {
	Resumes   resumes.Repo
	Files     object.Store
	Artifacts artifacts.Store
	Pipeline  Pipeline
	Matcher   *matching.Service
	Activity  activitylog.Recorder
	// MaxUploadBytes overrides DefaultMaxUploadBytes when positive.
	MaxUploadBytes int64
}

// RegisterRoutes attaches resume routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes", h.upload)
	rg.GET("/resumes", h.list)
	rg.GET("/resumes/:id", h.get)
	rg.GET("/resumes/:id/content", h.content)
	rg.GET("/resumes/:id/analysis", h.analysis)
	rg.POST("/resumes/:id/process", h.process)
	rg.POST("/resumes/:id/analyze", h.analyze)
	rg.POST("/resumes/:id/match", h.match)
}

func (h *Handler) upload(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	if !ident.Role.Can(users.PermUploadResume) {
		respond.Error(c, http.StatusForbidden, "forbidden", "role may not upload resumes", nil)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes())

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	format, err := extract.ParseFormat(util.FileExtension(fileHeader.Filename))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "unsupported_format", "only pdf and docx files are accepted", gin.H{
			"fileName": fileHeader.Filename,
		})
		return
	}

	visibility, err := resumes.ParseVisibility(c.PostForm("visibility"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	stored, err := h.Files.Save(ctx, ident.UserID, fileHeader.Filename, file)
	if err != nil {
		if errors.Is(err, object.ErrInvalidKey) || errors.Is(err, util.ErrInvalidFileName) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file name", nil)
			return
		}
		telemetry.Error("resume.upload.save_failed", map[string]any{
			"user_id": ident.UserID,
			"error":   err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store file", nil)
		return
	}

	now := time.Now().UTC()
	res := resumes.Resume{
		ID:               uuid.NewString(),
		OwnerID:          ident.UserID,
		Title:            title,
		FileKey:          stored.Key,
		Format:           format,
		OriginalFilename: fileHeader.Filename,
		Visibility:       visibility,
		Status:           resumes.StatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.Resumes.Create(ctx, res); err != nil {
		telemetry.Error("resume.upload.create_failed", map[string]any{
			"user_id": ident.UserID,
			"error":   err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create resume", nil)
		return
	}
	c.Set(middleware.ResumeIDKey, res.ID)
	activitylog.Record(ctx, h.Activity, activitylog.ForResume(res.OwnerID, res.ID, activitylog.ActionUpload, "Resume uploaded."))

	requestID := middleware.RequestIDFromContext(c)
	if err := h.Pipeline.Enqueue(ctx, pipeline.TaskProcess, res.ID, requestID); err != nil {
		telemetry.Error("resume.upload.enqueue_failed", map[string]any{
			"resume_id":  res.ID,
			"request_id": requestID,
			"error":      err.Error(),
		})
		if uerr := h.Resumes.UpdateStatus(ctx, res.ID, resumes.StatusFailed); uerr != nil {
			telemetry.Error("resume.status_update_failed", map[string]any{
				"resume_id": res.ID,
				"error":     uerr.Error(),
			})
		}
		c.Set(middleware.StatusTransitionKey, "processing->failed")
		respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "failed to schedule processing", gin.H{
			"resumeId": res.ID,
		})
		return
	}

	respond.JSON(c, http.StatusAccepted, toResponse(res))
}

func (h *Handler) list(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.Resumes.ListByOwner(c.Request.Context(), ident.UserID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes", nil)
		return
	}

	resp := make([]ResumeResponse, 0, len(list))
	for _, res := range list {
		resp = append(resp, toResponse(res))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	res, ok := h.loadReadable(c)
	if !ok {
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(res))
}

func (h *Handler) content(c *gin.Context) {
	res, ok := h.loadReadable(c)
	if !ok {
		return
	}
	doc, found, err := h.Artifacts.GetContent(c.Request.Context(), res.ID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load content", nil)
		return
	}
	if !found {
		respond.Error(c, http.StatusNotFound, "not_found", "content not available", gin.H{"status": res.Status})
		return
	}
	respond.JSON(c, http.StatusOK, doc)
}

func (h *Handler) analysis(c *gin.Context) {
	res, ok := h.loadReadable(c)
	if !ok {
		return
	}
	doc, found, err := h.Artifacts.GetAnalysis(c.Request.Context(), res.ID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load analysis", nil)
		return
	}
	if !found {
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not available", gin.H{"status": res.Status})
		return
	}
	respond.JSON(c, http.StatusOK, doc)
}

func (h *Handler) process(c *gin.Context) {
	h.runTask(c, pipeline.TaskProcess)
}

func (h *Handler) analyze(c *gin.Context) {
	h.runTask(c, pipeline.TaskAnalyze)
}

// runTask queues task for the resume, or runs it inline when sync=true.
func (h *Handler) runTask(c *gin.Context, task pipeline.Task) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	res, ok := h.load(c)
	if !ok {
		return
	}
	if !ident.CanReprocessResume(res.OwnerID) {
		respond.Error(c, http.StatusForbidden, "forbidden", "not allowed to process this resume", nil)
		return
	}

	ctx := c.Request.Context()
	if sync, _ := strconv.ParseBool(c.Query("sync")); sync {
		if err := h.Pipeline.Run(ctx, task, res.ID); err != nil {
			var pf *pipeline.PermanentFailure
			if errors.As(err, &pf) {
				c.Set(middleware.StatusTransitionKey, "->failed")
				respond.Error(c, http.StatusUnprocessableEntity, "task_failed", pf.Error(), gin.H{
					"kind":     pf.Kind,
					"attempts": pf.Attempts,
				})
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to run task", nil)
			return
		}
		c.Set(middleware.StatusTransitionKey, "->completed")
		if task == pipeline.TaskProcess {
			h.respondResume(c, res.ID)
			return
		}
		doc, found, err := h.Artifacts.GetAnalysis(ctx, res.ID)
		if err != nil || !found {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "analysis missing after run", nil)
			return
		}
		respond.JSON(c, http.StatusOK, doc)
		return
	}

	requestID := middleware.RequestIDFromContext(c)
	if err := h.Pipeline.Enqueue(ctx, task, res.ID, requestID); err != nil {
		telemetry.Error("resume.enqueue_failed", map[string]any{
			"resume_id":  res.ID,
			"task":       string(task),
			"request_id": requestID,
			"error":      err.Error(),
		})
		respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "failed to schedule task", nil)
		return
	}
	respond.JSON(c, http.StatusAccepted, TaskResponse{
		ResumeID:  res.ID,
		Task:      string(task),
		Status:    "queued",
		RequestID: requestID,
	})
}

func (h *Handler) match(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "skills are required", nil)
		return
	}

	res, ok := h.load(c)
	if !ok {
		return
	}
	if !ident.CanMatchResume(res.OwnerID, res.Visibility == resumes.VisibilityPublic) {
		respond.Error(c, http.StatusForbidden, "forbidden", "not allowed to match this resume", nil)
		return
	}

	m, err := h.Matcher.MatchResume(c.Request.Context(), res.ID, req.Skills)
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrContentNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "content not available", gin.H{"status": res.Status})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to match resume", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, m)
}

func (h *Handler) respondResume(c *gin.Context, id string) {
	res, err := h.Resumes.Get(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch resume", nil)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(res))
}

// loadReadable fetches the :id resume and checks read access. It writes the
// error response itself and reports false when the handler should stop.
func (h *Handler) loadReadable(c *gin.Context) (resumes.Resume, bool) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return resumes.Resume{}, false
	}
	res, ok := h.load(c)
	if !ok {
		return resumes.Resume{}, false
	}
	if !ident.CanReadResume(res.OwnerID, res.Visibility == resumes.VisibilityPublic) {
		respond.Error(c, http.StatusForbidden, "forbidden", "not allowed to read this resume", nil)
		return resumes.Resume{}, false
	}
	return res, true
}

func (h *Handler) load(c *gin.Context) (resumes.Resume, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resume id is required", nil)
		return resumes.Resume{}, false
	}
	c.Set(middleware.ResumeIDKey, id)

	res, err := h.Resumes.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, resumes.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch resume", nil)
		}
		return resumes.Resume{}, false
	}
	return res, true
}

func (h *Handler) maxUploadBytes() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
