package syncapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"docsync/core/logger"
	syncengine "docsync/core/sync"
)

// Handler handles HTTP requests for sync runs.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/", h.HandleRun)
	group.Get("/strategies", h.HandleStrategies)
}

// HandleRun triggers a sync run. With dry_run set, the change set is computed
// and returned without writing anything.
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req RunRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.DryRun {
		plan, err := h.service.Preview(c.Context(), req)
		if err != nil {
			return h.fail(c, l, err)
		}
		return c.JSON(fiber.Map{
			"run_id":   plan.RunID,
			"strategy": plan.Strategy,
			"source":   plan.SourceCount,
			"dest":     plan.DestCount,
			"creates":  len(plan.Changes.Creates),
			"updates":  len(plan.Changes.Updates),
			"deletes":  len(plan.Changes.Deletes),
			"warnings": len(plan.Warnings),
		})
	}

	l.Info("Triggering sync run",
		zap.String("strategy", req.Strategy),
		zap.String("table", req.Table),
		zap.String("collection", req.Collection),
	)

	report, err := h.service.Run(c.Context(), req)
	var partial *syncengine.PartialFailureError
	if err != nil && !errors.As(err, &partial) {
		return h.fail(c, l, err)
	}

	status := fiber.StatusOK
	if partial != nil {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(report)
}

// HandleStrategies lists the available update strategies.
func (h *Handler) HandleStrategies(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"strategies": h.service.Strategies()})
}

func (h *Handler) fail(c *fiber.Ctx, l *zap.Logger, err error) error {
	l.Error("Sync request failed", zap.Error(err))

	var cfgErr *syncengine.ConfigurationError
	if errors.As(err, &cfgErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	var fetchErr *syncengine.SourceFetchError
	if errors.As(err, &fetchErr) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
