// Package api provides the REST API of the scan coordination server.
package api

import (
	"github.com/gofiber/fiber/v2"
)

// GetScansHandler godoc
// @Summary List recently finished scans
// @Description Returns every scan finished at or after the given timestamp along with the subset whose score crossed the malicious threshold
// @Tags Scans
// @Accept json
// @Produce json
// @Param since query int true "Unix timestamp to search from"
// @Success 200 {object} GetScansResponse
// @Failure 400 {object} Error
// @Router /scans [get]
// @Security ApiKeyAuth
func GetScansHandler(c *fiber.Ctx) error {
	since, present, err := queryUnixTime(c, "since")
	if err != nil || !present {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Detail: "since must be a unix timestamp"})
	}

	svc := serviceFromCtx(c)
	all, malicious, err := svc.FinishedSince(since)
	if err != nil {
		return serviceError(c, err)
	}

	response := GetScansResponse{
		AllScans:          make([]PackageSpecifier, 0, len(all)),
		MaliciousPackages: make([]MaliciousPackage, 0, len(malicious)),
	}
	for _, scan := range all {
		response.AllScans = append(response.AllScans, PackageSpecifier{Name: scan.Name, Version: scan.Version})
	}
	for _, scan := range malicious {
		response.MaliciousPackages = append(response.MaliciousPackages, MaliciousPackage{
			Name:         scan.Name,
			Version:      scan.Version,
			Score:        *scan.Score,
			InspectorURL: *scan.InspectorURL,
			Rules:        scan.RuleNames(),
		})
	}
	return c.JSON(response)
}
