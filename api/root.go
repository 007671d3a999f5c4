package api

import (
	"github.com/gofiber/fiber/v2"
)

// RootHandler godoc
// @Summary Server metadata
// @Description Returns the commit of the running server build and of the rule snapshot currently being served
// @Tags Meta
// @Produce json
// @Success 200 {object} ServerMetadata
// @Router / [get]
func RootHandler(c *fiber.Ctx) error {
	metadata := serviceFromCtx(c).Metadata()
	return c.JSON(ServerMetadata{
		ServerCommit: metadata.ServerCommit,
		RulesCommit:  metadata.RulesCommit,
	})
}
