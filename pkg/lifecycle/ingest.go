package lifecycle

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pkgshield/pkgshield/db"
	"github.com/pkgshield/pkgshield/internal/metrics"
)

// SubmitVerdict ingests a worker's terminal result for a scan. With the
// job cache enabled the verdict is buffered and persisted on the next
// flush, otherwise it is written to the catalogue immediately.
func (s *Service) SubmitVerdict(verdict db.ScanVerdict) error {
	now := time.Now().UTC()

	scan, err := s.store.GetScanByNameVersion(verdict.Name, verdict.Version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Str("name", verdict.Name).Str("version", verdict.Version).Msg("Verdict for unknown package")
			return NotFoundf("Package `%s@%s` not found in database.", verdict.Name, verdict.Version)
		}
		return err
	}

	if scan.Status == db.ScanStatusFinished {
		log.Error().Str("name", verdict.Name).Str("version", verdict.Version).Msg("Scan already in a FINISHED state")
		return Conflictf("Package `%s@%s` is already in a FINISHED state.", verdict.Name, verdict.Version)
	}

	if s.cache.Enabled() {
		if err := s.cache.Submit(verdict, now); err != nil {
			return err
		}
	} else if verdict.Failed() {
		if err := s.store.FinalizeFailure(scan.ScanID, *verdict.FailReason, now); err != nil {
			return err
		}
	} else {
		if err := s.store.FinalizeSuccess(scan.ScanID, verdict, now); err != nil {
			return err
		}
	}

	if verdict.Failed() {
		metrics.PackagesFail.Inc()
	} else {
		metrics.PackagesSuccess.Inc()
	}
	metrics.PackagesInQueue.Dec()
	return nil
}
