package api

import (
	"github.com/gofiber/fiber/v2"
)

// GetStatsHandler godoc
// @Summary Retrieve ingestion statistics
// @Description Returns the number of packages ingested, the mean scan duration in seconds and the failure count over the last 24 hours
// @Tags Stats
// @Accept json
// @Produce json
// @Success 200 {object} db.ScanStats
// @Failure 500 {object} Error
// @Router /stats [get]
// @Security ApiKeyAuth
func GetStatsHandler(c *fiber.Ctx) error {
	stats, err := serviceFromCtx(c).Stats()
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(stats)
}
