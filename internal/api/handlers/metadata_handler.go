package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/court-causelist/backend/internal/causelist"
	"github.com/court-causelist/backend/internal/scraper"
	"github.com/court-causelist/backend/pkg/logger"
)

// MetadataHandler serves the court hierarchy: states, districts, court
// complexes and judges. ?site= picks the court website.
type MetadataHandler struct {
	service *causelist.Service
}

func NewMetadataHandler(service *causelist.Service) *MetadataHandler {
	return &MetadataHandler{service: service}
}

func site(c *fiber.Ctx) string {
	return strings.ToLower(strings.TrimSpace(c.Query("site")))
}

func (h *MetadataHandler) GetStates(c *fiber.Ctx) error {
	states, err := h.service.ListStates(c.UserContext(), site(c))
	if err != nil {
		logger.Error("Failed to list states", zap.Error(err))
		return errorResponse(c, err, "Error fetching states")
	}
	return c.JSON(fiber.Map{"states": states})
}

func (h *MetadataHandler) GetDistricts(c *fiber.Ctx) error {
	state := param(c, "state")

	districts, err := h.service.ListDistricts(c.UserContext(), site(c), state)
	if err != nil {
		logger.Error("Failed to list districts", zap.String("state", state), zap.Error(err))
		return errorResponse(c, err, "Error fetching districts")
	}
	return c.JSON(fiber.Map{"districts": districts})
}

func (h *MetadataHandler) GetCourts(c *fiber.Ctx) error {
	state, district := param(c, "state"), param(c, "district")

	courts, err := h.service.ListCourtComplexes(c.UserContext(), site(c), state, district)
	if err != nil {
		logger.Error("Failed to list court complexes",
			zap.String("state", state),
			zap.String("district", district),
			zap.Error(err),
		)
		return errorResponse(c, err, "Error fetching courts")
	}
	return c.JSON(fiber.Map{"courts": courts})
}

func (h *MetadataHandler) GetJudges(c *fiber.Ctx) error {
	path := scraper.Path{
		State:        param(c, "state"),
		District:     param(c, "district"),
		CourtComplex: param(c, "court_complex"),
	}

	judges, err := h.service.ListJudges(c.UserContext(), site(c), path)
	if err != nil {
		logger.Error("Failed to list judges", zap.String("court_complex", path.CourtComplex), zap.Error(err))
		return errorResponse(c, err, "Error fetching judges")
	}
	return c.JSON(fiber.Map{"judges": judges})
}
