package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/metrics"
	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/jvmd/fraudguard/internal/pkg/retry"
	"github.com/jvmd/fraudguard/internal/utils"
	"github.com/jvmd/fraudguard/services/fraud"
)

// Handler exposes the internal admin surface: enqueueing transactions,
// reloading the rule cache, and inspecting queue state.
type Handler struct {
	queue     fraud.WorkQueue
	engine    fraud.RuleEngine
	txRepo    fraud.TransactionRepo
	collector *metrics.Collector
	retrier   *retry.Retrier
	log       *logger.ZapLogger
}

// NewHandler creates a new admin handler
func NewHandler(
	queue fraud.WorkQueue,
	engine fraud.RuleEngine,
	txRepo fraud.TransactionRepo,
	collector *metrics.Collector,
	retrier *retry.Retrier,
	log *logger.ZapLogger,
) *Handler {
	return &Handler{
		queue:     queue,
		engine:    engine,
		txRepo:    txRepo,
		collector: collector,
		retrier:   retrier,
		log:       log,
	}
}

// RegisterRoutes registers the admin and metrics routes
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	internal := e.Group("/internal")
	internal.POST("/transactions/:id/enqueue", h.EnqueueTransaction)
	internal.POST("/rules/reload", h.ReloadRules)
	internal.GET("/queue/stats", h.QueueStats)

	e.GET("/metrics", echo.WrapHandler(h.collector.Handler()))
}

type enqueueRequest struct {
	CorrelationID string `json:"correlation_id"`
}

type enqueueResponse struct {
	TransactionID string `json:"transaction_id"`
	CorrelationID string `json:"correlation_id"`
}

// EnqueueTransaction submits a persisted transaction for processing. The
// enqueue itself is retried with backoff; exhaustion maps to 503 so callers
// can resubmit.
func (h *Handler) EnqueueTransaction(c echo.Context) error {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return utils.BadRequestResponse(c, "invalid transaction id")
	}

	var req enqueueRequest
	if err := c.Bind(&req); err != nil && err != echo.ErrUnsupportedMediaType {
		return utils.BadRequestResponse(c, "invalid request body")
	}
	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	ctx := c.Request().Context()
	if _, err := h.txRepo.GetTransaction(ctx, txID); err != nil {
		return utils.NotFoundResponse(c, "transaction not found")
	}

	err = h.retrier.Execute(ctx, func(ctx context.Context) error {
		return h.queue.Enqueue(ctx, txID, correlationID)
	})
	if err != nil {
		h.log.Error("Failed to enqueue transaction",
			logger.String("transaction_id", txID.String()),
			logger.Err(err))
		return utils.ServiceUnavailableResponse(c, "failed to enqueue transaction")
	}

	h.log.Info("Transaction enqueued",
		logger.String("transaction_id", txID.String()),
		logger.String("correlation_id", correlationID))
	return utils.SuccessResponse(c, http.StatusAccepted, "transaction enqueued", enqueueResponse{
		TransactionID: txID.String(),
		CorrelationID: correlationID,
	})
}

// ReloadRules refreshes the engine's cached rule set from storage
func (h *Handler) ReloadRules(c echo.Context) error {
	if err := h.engine.Reload(c.Request().Context()); err != nil {
		h.log.Error("Failed to reload rules", logger.Err(err))
		return utils.InternalServerErrorResponse(c, "failed to reload rules")
	}
	return utils.SuccessResponse(c, http.StatusOK, "rules reloaded", nil)
}

type queueStatsResponse struct {
	PendingDepth int64            `json:"pending_depth"`
	StatusCounts map[string]int64 `json:"status_counts"`
}

// QueueStats reports the pending queue depth and transaction status counts
func (h *Handler) QueueStats(c echo.Context) error {
	ctx := c.Request().Context()

	depth, err := h.queue.Size(ctx)
	if err != nil {
		h.log.Error("Failed to read queue depth", logger.Err(err))
		return utils.InternalServerErrorResponse(c, "failed to read queue depth")
	}
	h.collector.SetQueueDepth(depth)

	statuses := []models.TransactionStatus{
		models.StatusProcessing,
		models.StatusProcessed,
		models.StatusAlerted,
		models.StatusReviewed,
	}
	counts := make(map[string]int64, len(statuses))
	for _, status := range statuses {
		count, err := h.txRepo.CountByStatus(ctx, status)
		if err != nil {
			h.log.Error("Failed to count transactions",
				logger.String("status", string(status)),
				logger.Err(err))
			return utils.InternalServerErrorResponse(c, "failed to count transactions")
		}
		counts[string(status)] = count
	}

	return utils.SuccessResponse(c, http.StatusOK, "", queueStatsResponse{
		PendingDepth: depth,
		StatusCounts: counts,
	})
}
