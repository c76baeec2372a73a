package verify

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"docsync/core/logger"
)

// Handler handles HTTP requests for destination consistency checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the verify routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/verify")
	group.Get("/", h.HandleVerify)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/lineage", h.HandleLineageCheck)
	group.Get("/checksums", h.HandleChecksumCheck)
}

// HandleVerify runs all checks for a collection.
func (h *Handler) HandleVerify(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	collection := c.Query("collection")
	if collection == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "collection query parameter is required"})
	}
	l.Info("Running all consistency checks", zap.String("collection", collection))

	report := make(map[string]any)

	if missing, err := h.service.CheckSchema(); err != nil {
		report["schema"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["schema"] = fiber.Map{"status": "ok", "missing": missing}
	}

	if issues, err := h.service.CheckLineage(c.Context(), collection); err != nil {
		report["lineage"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["lineage"] = fiber.Map{"status": "ok", "issues": issues}
	}

	if issues, err := h.service.CheckChecksums(c.Context(), collection); err != nil {
		report["checksums"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["checksums"] = fiber.Map{"status": "ok", "issues": issues}
	}

	return c.JSON(report)
}

// HandleSchemaCheck checks the documents table schema.
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	missing, err := h.service.CheckSchema()
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"status":  "checked",
		"missing": missing,
	})
}

// HandleLineageCheck checks the single-latest rule for a collection.
func (h *Handler) HandleLineageCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	collection := c.Query("collection")
	if collection == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "collection query parameter is required"})
	}

	issues, err := h.service.CheckLineage(c.Context(), collection)
	if err != nil {
		l.Error("Lineage check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"status": "checked",
		"issues": issues,
	})
}

// HandleChecksumCheck recomputes stored checksums for a collection.
func (h *Handler) HandleChecksumCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	collection := c.Query("collection")
	if collection == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "collection query parameter is required"})
	}

	issues, err := h.service.CheckChecksums(c.Context(), collection)
	if err != nil {
		l.Error("Checksum check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"status": "checked",
		"issues": issues,
	})
}
