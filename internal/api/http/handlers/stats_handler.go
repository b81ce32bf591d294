package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-workflow/internal/service"
)

// StatsHandler serves the aggregate reporting endpoint.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Overview GET /stats.
func (h *StatsHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.stats.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": overview})
}
