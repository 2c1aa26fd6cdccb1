package handlers

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/court-causelist/backend/internal/causelist"
	"github.com/court-causelist/backend/internal/middleware/validation"
	"github.com/court-causelist/backend/pkg/logger"
)

type CauseListHandler struct {
	service *causelist.Service
}

func NewCauseListHandler(service *causelist.Service) *CauseListHandler {
	return &CauseListHandler{service: service}
}

// FetchCauseList expects validation.FetchRequest to have run first.
func (h *CauseListHandler) FetchCauseList(c *fiber.Ctx) error {
	req, ok := c.Locals(validation.LocalsFetchRequest).(causelist.FetchRequest)
	if !ok {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "Invalid request body"})
		}
	}

	result, err := h.service.Fetch(c.UserContext(), req)
	if err != nil {
		logger.Error("Failed to fetch cause list",
			zap.String("state", req.State),
			zap.String("district", req.District),
			zap.String("court_complex", req.CourtComplex),
			zap.String("date", req.Date),
			zap.Error(err),
		)
		return errorResponse(c, err, "Error fetching cause list")
	}

	return c.JSON(result)
}

func (h *CauseListHandler) GetRun(c *fiber.Ctx) error {
	run, err := h.service.Run(c.Params("id"))
	if err != nil {
		return errorResponse(c, err, "Error fetching run")
	}
	return c.JSON(run)
}

func (h *CauseListHandler) Download(c *fiber.Ctx) error {
	filename := c.Params("filename")

	artifact, err := h.service.Artifact(filename)
	if err != nil {
		if statusFor(err) == fiber.StatusNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "File not found"})
		}
		return errorResponse(c, err, "Error downloading file")
	}

	if _, err := os.Stat(artifact.Path); err != nil {
		logger.Warn("Registered artifact missing on disk", zap.String("path", artifact.Path), zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "File not found"})
	}

	c.Set(fiber.HeaderContentType, artifact.ContentType)
	return c.Download(artifact.Path, artifact.Filename)
}

func (h *CauseListHandler) Health(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":       "healthy",
		"message":      "Court Cause List API is running",
		"sites":        h.service.Sites(),
		"default_site": h.service.DefaultSite(),
		"time":         time.Now().Unix(),
	}

	if stats, err := h.service.RunStats(time.Hour); err != nil {
		logger.Warn("Failed to read run stats", zap.Error(err))
	} else {
		resp["runs_last_hour"] = stats
	}

	return c.JSON(resp)
}
