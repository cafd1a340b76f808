package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/allisson/filecatalog/internal/catalog/http/dto"
	"github.com/allisson/filecatalog/internal/httputil"
	"github.com/allisson/filecatalog/internal/integrity"
)

// IntegrityHandler handles HTTP requests for index integrity operations.
type IntegrityHandler struct {
	checker integrity.Checker
	logger  *slog.Logger
}

// NewIntegrityHandler creates a new integrity handler with required dependencies.
func NewIntegrityHandler(checker integrity.Checker, logger *slog.Logger) *IntegrityHandler {
	return &IntegrityHandler{
		checker: checker,
		logger:  logger,
	}
}

// VerifyHandler compares catalog membership against the search index.
// GET /v1/integrity
// Returns 200 OK with missing and orphan document IDs.
func (h *IntegrityHandler) VerifyHandler(c *gin.Context) {
	report, err := h.checker.Verify(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapReportToResponse(report))
}

// RepairHandler reconciles the search index with the catalog.
// POST /v1/integrity/repair?all=true rebuilds every document; without the
// flag only detected discrepancies are rewritten.
func (h *IntegrityHandler) RepairHandler(c *gin.Context) {
	reindexAll := false
	if raw := c.Query("all"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
		reindexAll = parsed
	}

	repaired, err := h.checker.Repair(c.Request.Context(), reindexAll)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.RepairResponse{ReindexedDocuments: repaired})
}
