package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/filecatalog/internal/catalog/http/dto"
	"github.com/allisson/filecatalog/internal/httputil"
	"github.com/allisson/filecatalog/internal/importer"
	customValidation "github.com/allisson/filecatalog/internal/validation"
)

// ImportHandler handles HTTP requests for batch import runs.
type ImportHandler struct {
	importUseCase importer.Importer
	logger        *slog.Logger
}

// NewImportHandler creates a new import handler with required dependencies.
func NewImportHandler(importUseCase importer.Importer, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importUseCase: importUseCase,
		logger:        logger,
	}
}

// ImportHandler runs a batch import.
// POST /v1/imports
// Returns 200 OK with per-row outcome counters.
func (h *ImportHandler) ImportHandler(c *gin.Context) {
	var req dto.ImportRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	items := make([]importer.Item, 0, len(req.Items))
	for _, item := range req.Items {
		if err := item.Validate(); err != nil {
			httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
			return
		}
		items = append(items, importer.Item{
			FileID:    uuid.MustParse(item.FileID),
			Name:      item.Name,
			Extension: item.Extension,
			MimeType:  item.MimeType,
			Author:    item.Author,
			SizeBytes: item.SizeBytes,
			Title:     item.Title,
			Content:   item.Content,
			Version:   item.Version,
		})
	}

	opts := importer.Options{
		BatchSize:        req.BatchSize,
		UpsertSearch:     req.UpsertSearch,
		DetachAfterBatch: req.DetachAfterBatch,
	}

	result, err := h.importUseCase.Import(c.Request.Context(), items, opts)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapImportResultToResponse(result))
}
