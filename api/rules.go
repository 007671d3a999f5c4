package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// GetRulesHandler godoc
// @Summary Fetch the current YARA rules
// @Description Serves the in-memory rule snapshot, a mapping of rule names to rule bodies plus the commit they were taken from
// @Tags Rules
// @Accept json
// @Produce json
// @Success 200 {object} GetRules
// @Router /rules [get]
// @Security ApiKeyAuth
func GetRulesHandler(c *fiber.Ctx) error {
	snapshot := serviceFromCtx(c).Rules().Current()
	return c.JSON(GetRules{
		Hash:  snapshot.Commit,
		Rules: snapshot.Rules,
	})
}

// UpdateRulesHandler godoc
// @Summary Refresh the YARA rules
// @Description Fetches the latest rules from the rule repository and swaps the served snapshot. The previous snapshot is kept on failure
// @Tags Rules
// @Accept json
// @Produce json
// @Success 200
// @Failure 502 {object} Error
// @Router /update-rules/ [post]
// @Security ApiKeyAuth
func UpdateRulesHandler(c *fiber.Ctx) error {
	if err := serviceFromCtx(c).Rules().Refresh(c.UserContext()); err != nil {
		log.Error().Err(err).Msg("Rule refresh request failed")
		return c.Status(fiber.StatusBadGateway).JSON(Error{Detail: "Unable to fetch the latest rules"})
	}
	return c.SendStatus(fiber.StatusOK)
}
