package api

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"github.com/pkgshield/pkgshield/db"
)

var validate = validator.New()

// LookupPackagesHandler godoc
// @Summary Lookup scanned packages
// @Description Looks up packages by name, version or finish time, most recently queued first. Allowed parameter combinations are name+version, name+since, name and since
// @Tags Packages
// @Accept json
// @Produce json
// @Param name query string false "Package name"
// @Param version query string false "Package version"
// @Param since query int false "Unix timestamp to search from, matched against finish time"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {array} Package
// @Failure 400 {object} Error "Invalid parameter combination"
// @Router /package [get]
// @Security ApiKeyAuth
func LookupPackagesHandler(c *fiber.Ctx) error {
	var filter db.ScanFilter
	if name, ok := queryString(c, "name"); ok {
		filter.Name = &name
	}
	if version, ok := queryString(c, "version"); ok {
		filter.Version = &version
	}
	since, present, err := queryUnixTime(c, "since")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Detail: "since must be a unix timestamp"})
	}
	if present {
		filter.Since = &since
	}

	page := c.QueryInt("page", 0)
	size := c.QueryInt("size", 0)
	if page > 0 && size > 0 {
		filter.Pagination = &db.Pagination{Page: page, PageSize: size}
	}

	svc := serviceFromCtx(c)
	scans, err := svc.LookupPackages(filter)
	if err != nil {
		return serviceError(c, err)
	}

	packages := make([]Package, 0, len(scans))
	for _, scan := range scans {
		packages = append(packages, PackageFromScan(scan))
	}
	return c.JSON(packages)
}

// QueuePackageHandler godoc
// @Summary Queue a package for scanning
// @Description Queues a release to be scanned when the next scanner is available. The release must exist on PyPI
// @Tags Packages
// @Accept json
// @Produce json
// @Param input body PackageSpecifier true "Package name and version"
// @Success 200 {object} QueuePackageResponse
// @Failure 404 {object} Error "Package was not found on PyPI"
// @Failure 409 {object} Error "Package is already queued"
// @Router /package [post]
// @Security ApiKeyAuth
func QueuePackageHandler(c *fiber.Ctx) error {
	input := new(PackageSpecifier)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Detail: "Cannot parse JSON"})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Detail: err.Error()})
	}

	svc := serviceFromCtx(c)
	scan, err := svc.QueuePackage(c.UserContext(), input.Name, input.Version, AuthSubject(c))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(QueuePackageResponse{ID: scan.ScanID.String()})
}

// BatchQueuePackageHandler godoc
// @Summary Queue a batch of packages for scanning
// @Description Queues every listed release that is not already known. Releases missing from PyPI are skipped
// @Tags Packages
// @Accept json
// @Produce json
// @Param input body []PackageSpecifier true "Packages to queue"
// @Success 200
// @Failure 400 {object} Error
// @Router /batch/package [post]
// @Security ApiKeyAuth
func BatchQueuePackageHandler(c *fiber.Ctx) error {
	var input []PackageSpecifier

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Detail: "Cannot parse JSON"})
	}
	keys := make([]db.ScanKey, 0, len(input))
	for _, spec := range input {
		if err := validate.Struct(spec); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(Error{Detail: err.Error()})
		}
		keys = append(keys, db.ScanKey{Name: spec.Name, Version: spec.Version})
	}

	svc := serviceFromCtx(c)
	if err := svc.QueuePackagesBatch(c.UserContext(), keys, AuthSubject(c)); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// SubmitResultsHandler godoc
// @Summary Submit scan results
// @Description Ingests a scanner's verdict for a leased package. A body with a reason marks the scan failed
// @Tags Packages
// @Accept json
// @Produce json
// @Param input body ScanResultBody true "Scan result"
// @Success 200
// @Failure 404 {object} Error "Package not found in database"
// @Failure 409 {object} Error "Scan already finished"
// @Router /package [put]
// @Security ApiKeyAuth
func SubmitResultsHandler(c *fiber.Ctx) error {
	input := new(ScanResultBody)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Detail: "Cannot parse JSON"})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Detail: err.Error()})
	}

	verdict := db.ScanVerdict{
		Name:          input.Name,
		Version:       input.Version,
		Subject:       AuthSubject(c),
		Commit:        input.Commit,
		Score:         input.Score,
		InspectorURL:  input.InspectorURL,
		RulesMatched:  input.RulesMatched,
		Distributions: datatypes.JSON(input.Distributions),
		FailReason:    input.Reason,
	}

	svc := serviceFromCtx(c)
	if err := svc.SubmitVerdict(verdict); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
