package lifecycle

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pkgshield/pkgshield/db"
	"github.com/pkgshield/pkgshield/internal/metrics"
	"github.com/pkgshield/pkgshield/pkg/reporter"
)

// ReportRequest is a request to report one package version upstream as
// malicious. InspectorURL and AdditionalInformation are optional in the
// schema but required in some states, see ReportPackage.
type ReportRequest struct {
	Name                  string
	Version               string
	InspectorURL          *string
	AdditionalInformation *string
}

// ReportPackage reports a package version to the upstream observation
// API and records who reported it.
//
// The package must exist in the catalogue and on PyPI, and no other
// version of it may have been reported before. An inspector URL must
// come from the request or from the scan. Additional information is
// always required for observations and doubles as the report summary.
func (s *Service) ReportPackage(ctx context.Context, req ReportRequest, subject string) error {
	scans, err := s.store.FindScansByName(req.Name)
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		log.Error().Str("name", req.Name).Str("version", req.Version).Msg("No scan records for reported package")
		return NotFoundf("No records for package `%s v%s` were found in the database", req.Name, req.Version)
	}

	for _, scan := range scans {
		if scan.ReportedAt != nil {
			log.Error().Str("name", scan.Name).Str("version", scan.Version).Msg("Another version was already reported")
			return Conflictf(
				"Only one version of a package may be reported at a time (`%s@%s` was already reported)",
				scan.Name, scan.Version,
			)
		}
	}

	var scan *db.Scan
	for _, candidate := range scans {
		if candidate.Version == req.Version {
			scan = candidate
			break
		}
	}
	if scan == nil {
		log.Error().Str("name", req.Name).Str("version", req.Version).Msg("Reported version has no scan record")
		return NotFoundf("No records for package `%s v%s` were found in the database", req.Name, req.Version)
	}

	var inspectorURL string
	switch {
	case req.InspectorURL != nil && *req.InspectorURL != "":
		inspectorURL = *req.InspectorURL
	case scan.InspectorURL != nil && *scan.InspectorURL != "":
		inspectorURL = *scan.InspectorURL
	default:
		log.Error().Str("name", req.Name).Str("version", req.Version).Msg("Missing inspector_url field")
		return Invalidf("inspector_url not given and not found in database")
	}

	if req.AdditionalInformation == nil {
		if len(scan.Rules) == 0 {
			return Invalidf(
				"additional_information is a required field as package `%s@%s` has no matched rules in the database",
				req.Name, req.Version,
			)
		}
		return Invalidf("additional_information is required when using Observation API")
	}

	exists, err := s.pypi.ProjectExists(ctx, req.Name)
	if err != nil {
		return Upstreamf(err, "PyPI project lookup for %s failed", req.Name)
	}
	if !exists {
		log.Error().Str("name", req.Name).Msg("Package not found on PyPI")
		return NotFoundf("Package not found on PyPI")
	}

	rulesMatched := scan.RuleNames()
	observation := reporter.Observation{
		Kind:         reporter.KindMalware,
		Summary:      *req.AdditionalInformation,
		InspectorURL: inspectorURL,
		Extra:        map[string]interface{}{"yara_rules": rulesMatched},
	}
	if err := s.reporter.SendObservation(ctx, req.Name, observation); err != nil {
		return Upstreamf(err, "report delivery for %s failed", req.Name)
	}

	if err := s.store.MarkReported(scan.ScanID, subject, time.Now().UTC()); err != nil {
		return err
	}

	metrics.PackagesReported.Inc()
	log.Info().
		Str("name", req.Name).
		Str("version", req.Version).
		Str("inspector_url", inspectorURL).
		Strs("rules_matched", rulesMatched).
		Str("reported_by", subject).
		Msg("Sent report")
	return nil
}
