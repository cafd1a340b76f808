// Package http provides HTTP handlers for outbox dispatch operations.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/filecatalog/internal/httputil"
	"github.com/allisson/filecatalog/internal/outbox/domain"
	outboxUseCase "github.com/allisson/filecatalog/internal/outbox/usecase"
)

// DeadLetterResponse represents a dead lettered outbox event in API responses.
type DeadLetterResponse struct {
	ID             string    `json:"id"`
	OutboxID       string    `json:"outbox_id"`
	EventType      string    `json:"event_type"`
	Payload        string    `json:"payload"`
	Attempts       int       `json:"attempts"`
	Error          string    `json:"error"`
	CreatedAt      time.Time `json:"created_at"`
	DeadLetteredAt time.Time `json:"dead_lettered_at"`
}

// ListDeadLettersResponse wraps a page of dead letters.
type ListDeadLettersResponse struct {
	DeadLetters []DeadLetterResponse `json:"dead_letters"`
	Offset      int                  `json:"offset"`
	Limit       int                  `json:"limit"`
}

// DrainResponse reports how many events a drain run dispatched.
type DrainResponse struct {
	Processed int `json:"processed"`
}

// mapDeadLetterToResponse converts a dead letter event to an API response.
func mapDeadLetterToResponse(event *domain.DeadLetterEvent) DeadLetterResponse {
	return DeadLetterResponse{
		ID:             event.ID.String(),
		OutboxID:       event.OutboxID.String(),
		EventType:      event.EventType,
		Payload:        event.Payload,
		Attempts:       event.Attempts,
		Error:          event.Error,
		CreatedAt:      event.CreatedAt,
		DeadLetteredAt: event.DeadLetteredAt,
	}
}

// OutboxHandler handles HTTP requests for outbox dispatch operations.
type OutboxHandler struct {
	outboxUseCase outboxUseCase.UseCase
	logger        *slog.Logger
}

// NewOutboxHandler creates a new outbox handler with required dependencies.
func NewOutboxHandler(outboxUseCase outboxUseCase.UseCase, logger *slog.Logger) *OutboxHandler {
	return &OutboxHandler{
		outboxUseCase: outboxUseCase,
		logger:        logger,
	}
}

// DrainHandler dispatches pending outbox events until none remain.
// POST /v1/outbox/drain
func (h *OutboxHandler) DrainHandler(c *gin.Context) {
	processed, err := h.outboxUseCase.Drain(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, DrainResponse{Processed: processed})
}

// ListDeadLettersHandler lists dead lettered events, newest first.
// GET /v1/outbox/dead-letters?offset=0&limit=50
func (h *OutboxHandler) ListDeadLettersHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	deadLetters, err := h.outboxUseCase.ListDeadLetters(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := ListDeadLettersResponse{
		DeadLetters: make([]DeadLetterResponse, 0, len(deadLetters)),
		Offset:      offset,
		Limit:       limit,
	}
	for _, event := range deadLetters {
		response.DeadLetters = append(response.DeadLetters, mapDeadLetterToResponse(event))
	}

	c.JSON(http.StatusOK, response)
}
