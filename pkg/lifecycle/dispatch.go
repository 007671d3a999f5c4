package lifecycle

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pkgshield/pkgshield/db"
)

// RequestJobs leases up to batch jobs to the given leaseholder and
// returns them together with the rule commit the scans should run
// against. An empty slice means nothing is ready.
//
// With the job cache enabled jobs are acquired from the cache one at a
// time and their leases live in memory until the next flush, otherwise
// the batch is leased straight from the database.
func (s *Service) RequestJobs(leaseholder string, batch int) ([]*db.Scan, string, error) {
	if batch < 1 {
		batch = 1
	}
	commit := s.rules.Current().Commit
	now := time.Now().UTC()

	var scans []*db.Scan
	if s.cache.Enabled() {
		for i := 0; i < batch; i++ {
			scan, err := s.cache.Acquire(leaseholder, now)
			if err != nil {
				return nil, commit, err
			}
			if scan == nil {
				break
			}
			scans = append(scans, scan)
		}
	} else {
		leased, err := s.store.LeaseJobs(batch, leaseholder, now, s.jobTimeout)
		if err != nil {
			return nil, commit, err
		}
		scans = leased
	}

	if len(scans) > 0 {
		log.Info().Int("count", len(scans)).Str("leaseholder", leaseholder).Msg("Leased jobs")
	}
	return scans, commit, nil
}

// RequestJob leases a single job, collapsing the batch shape for
// callers that work one package at a time. A nil scan means nothing is
// ready.
func (s *Service) RequestJob(leaseholder string) (*db.Scan, string, error) {
	scans, commit, err := s.RequestJobs(leaseholder, 1)
	if err != nil || len(scans) == 0 {
		return nil, commit, err
	}
	return scans[0], commit, nil
}
