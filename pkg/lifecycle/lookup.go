package lifecycle

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pkgshield/pkgshield/db"
)

// LookupPackages returns scans matching the filter, most recently
// queued first. Disallowed parameter combinations yield an invalid
// error.
func (s *Service) LookupPackages(filter db.ScanFilter) ([]*db.Scan, error) {
	scans, err := s.store.FindScans(filter)
	if err != nil {
		if errors.Is(err, db.ErrInvalidQuery) {
			log.Debug().Msg("Invalid parameter combination")
			return nil, Invalidf("Invalid parameter combination")
		}
		return nil, err
	}
	return scans, nil
}

// FinishedSince returns every scan finished at or after since together
// with the subset considered malicious: a non-nil score at or above the
// threshold and an inspector URL on record.
func (s *Service) FinishedSince(since time.Time) (all []*db.Scan, malicious []*db.Scan, err error) {
	all, err = s.store.FindScans(db.ScanFilter{Since: &since})
	if err != nil {
		return nil, nil, err
	}
	for _, scan := range all {
		if scan.Score == nil || *scan.Score < s.scoreThreshold {
			continue
		}
		if scan.InspectorURL == nil {
			continue
		}
		malicious = append(malicious, scan)
	}
	return all, malicious, nil
}

// Stats summarizes catalogue activity over the last 24 hours.
func (s *Service) Stats() (db.ScanStats, error) {
	return s.store.GetScanStats(time.Now().UTC().Add(-24 * time.Hour))
}
