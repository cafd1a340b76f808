// Package http provides HTTP handlers for catalog file operations.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/filecatalog/internal/catalog/http/dto"
	"github.com/allisson/filecatalog/internal/catalog/session"
	catalogUseCase "github.com/allisson/filecatalog/internal/catalog/usecase"
	"github.com/allisson/filecatalog/internal/httputil"
	customValidation "github.com/allisson/filecatalog/internal/validation"
)

// actorHeader identifies the caller on whose behalf a write runs. Falls back
// to "anonymous" so audit rows never have an empty actor.
const actorHeader = "X-Actor"

// FileHandler handles HTTP requests for catalog file operations.
type FileHandler struct {
	fileUseCase catalogUseCase.UseCase
	logger      *slog.Logger
}

// NewFileHandler creates a new file handler with required dependencies.
func NewFileHandler(fileUseCase catalogUseCase.UseCase, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		fileUseCase: fileUseCase,
		logger:      logger,
	}
}

// sessionRequest builds the write session identity from request metadata.
func sessionRequest(c *gin.Context) session.Request {
	actor := c.GetHeader(actorHeader)
	if actor == "" {
		actor = "anonymous"
	}
	return session.Request{
		RequestID: requestid.Get(c),
		Actor:     actor,
	}
}

// CreateHandler creates a new catalog file.
// POST /v1/files
// Returns 201 Created with the file including its index state.
func (h *FileHandler) CreateHandler(c *gin.Context) {
	var req dto.FileRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := catalogUseCase.CreateFileInput{
		Name:      req.Name,
		Extension: req.Extension,
		MimeType:  req.MimeType,
		Author:    req.Author,
		SizeBytes: req.SizeBytes,
		Title:     req.Title,
	}

	file, err := h.fileUseCase.CreateFile(c.Request.Context(), sessionRequest(c), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapFileToResponse(file))
}

// GetHandler retrieves a file by ID.
// GET /v1/files/:id
func (h *FileHandler) GetHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	file, err := h.fileUseCase.GetFile(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapFileToResponse(file))
}

// UpdateHandler replaces a file's descriptive fields.
// PUT /v1/files/:id
// Returns 409 Conflict when another writer committed first.
func (h *FileHandler) UpdateHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	var req dto.FileRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := catalogUseCase.UpdateFileInput{
		Name:      req.Name,
		Extension: req.Extension,
		MimeType:  req.MimeType,
		Author:    req.Author,
		SizeBytes: req.SizeBytes,
		Title:     req.Title,
	}

	file, err := h.fileUseCase.UpdateFile(c.Request.Context(), sessionRequest(c), id, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapFileToResponse(file))
}

// DeleteHandler removes a file and schedules its index entry removal.
// DELETE /v1/files/:id
func (h *FileHandler) DeleteHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.fileUseCase.DeleteFile(c.Request.Context(), sessionRequest(c), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
