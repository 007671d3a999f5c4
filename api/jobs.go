package api

import (
	"github.com/gofiber/fiber/v2"
)

// PostJobsHandler godoc
// @Summary Request scan jobs
// @Description Leases up to batch queued packages to the calling scanner along with the rule commit to scan against. An empty list means nothing is ready
// @Tags Jobs
// @Accept json
// @Produce json
// @Param batch query int false "Number of jobs to lease" default(1)
// @Success 200 {array} JobResult
// @Failure 401 {object} Error
// @Router /jobs [post]
// @Security ApiKeyAuth
func PostJobsHandler(c *fiber.Ctx) error {
	batch := c.QueryInt("batch", 1)

	svc := serviceFromCtx(c)
	scans, hash, err := svc.RequestJobs(AuthSubject(c), batch)
	if err != nil {
		return serviceError(c, err)
	}

	jobs := make([]JobResult, 0, len(scans))
	for _, scan := range scans {
		jobs = append(jobs, JobResult{
			Name:          scan.Name,
			Version:       scan.Version,
			Distributions: scan.DistributionURLs(),
			Hash:          hash,
		})
	}
	return c.JSON(jobs)
}

// PostJobHandler godoc
// @Summary Request a single scan job
// @Description Leases one queued package to the calling scanner. Kept for scanners that work one package at a time
// @Tags Jobs
// @Accept json
// @Produce json
// @Success 200 {object} JobResult
// @Failure 401 {object} Error
// @Router /job [post]
// @Security ApiKeyAuth
func PostJobHandler(c *fiber.Ctx) error {
	svc := serviceFromCtx(c)
	scan, hash, err := svc.RequestJob(AuthSubject(c))
	if err != nil {
		return serviceError(c, err)
	}

	if scan == nil {
		return c.JSON(NoJob{Detail: "No available packages to scan. Try again later."})
	}

	return c.JSON(JobResult{
		Name:          scan.Name,
		Version:       scan.Version,
		Distributions: scan.DistributionURLs(),
		Hash:          hash,
	})
}
