package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pkgshield/pkgshield/pkg/lifecycle"
)

// ReportPackageHandler godoc
// @Summary Report a malicious package
// @Description Reports a package version to the upstream observation API. The package must exist in the database and on PyPI, and no other version of it may have been reported before
// @Tags Reports
// @Accept json
// @Produce json
// @Param input body ReportPackageBody true "Report request"
// @Success 200
// @Failure 400 {object} Error "Missing inspector_url or additional_information"
// @Failure 404 {object} Error "Package not found in the database or on PyPI"
// @Failure 409 {object} Error "Another version was already reported"
// @Router /report [post]
// @Security ApiKeyAuth
func ReportPackageHandler(c *fiber.Ctx) error {
	input := new(ReportPackageBody)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Detail: "Cannot parse JSON"})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Detail: err.Error()})
	}

	svc := serviceFromCtx(c)
	err := svc.ReportPackage(c.UserContext(), lifecycle.ReportRequest{
		Name:                  input.Name,
		Version:               input.Version,
		InspectorURL:          input.InspectorURL,
		AdditionalInformation: input.AdditionalInformation,
	}, AuthSubject(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
