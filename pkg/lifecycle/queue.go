package lifecycle

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"gorm.io/gorm"

	"github.com/pkgshield/pkgshield/db"
	"github.com/pkgshield/pkgshield/internal/metrics"
	"github.com/pkgshield/pkgshield/pkg/pypi"
)

const batchFetchWorkers = 10

// QueuePackage resolves a release against PyPI and queues it for
// scanning under the given subject. The scan keeps the requested name
// and version verbatim.
func (s *Service) QueuePackage(ctx context.Context, name, version, subject string) (*db.Scan, error) {
	release, err := s.pypi.ReleaseMetadata(ctx, name, version)
	if err != nil {
		if errors.Is(err, pypi.ErrPackageNotFound) {
			log.Error().Str("name", name).Str("version", version).Msg("Package not found on PyPI")
			return nil, NotFoundf("Package %s@%s was not found on PyPI", name, version)
		}
		return nil, Upstreamf(err, "PyPI metadata lookup for %s@%s failed", name, version)
	}

	scan := &db.Scan{
		Name:     name,
		Version:  version,
		Status:   db.ScanStatusQueued,
		QueuedBy: subject,
	}
	for _, url := range release.DownloadURLs {
		scan.DownloadURLs = append(scan.DownloadURLs, db.DownloadURL{URL: url})
	}

	if _, err := s.store.InsertScan(scan); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, AlreadyExistsf("Package %s@%s is already queued for scanning", name, version)
		}
		return nil, err
	}

	metrics.PackagesIngested.Inc()
	metrics.PackagesInQueue.Inc()
	log.Info().Str("name", name).Str("version", version).Str("queued_by", subject).Msg("Added new package")
	return scan, nil
}

// QueuePackagesBatch queues every release in the list that is not
// already known to the catalogue. Unknown releases are resolved against
// PyPI concurrently, ones PyPI does not know are skipped.
func (s *Service) QueuePackagesBatch(ctx context.Context, packages []db.ScanKey, subject string) error {
	unique := make(map[db.ScanKey]bool, len(packages))
	keys := make([]db.ScanKey, 0, len(packages))
	for _, key := range packages {
		if !unique[key] {
			unique[key] = true
			keys = append(keys, key)
		}
	}

	existing, err := s.store.FindExistingKeys(keys)
	if err != nil {
		return err
	}

	p := pool.NewWithResults[*pypi.Release]().WithMaxGoroutines(batchFetchWorkers)
	for _, key := range keys {
		if existing[key] {
			continue
		}
		key := key
		p.Go(func() *pypi.Release {
			release, err := s.pypi.ReleaseMetadata(ctx, key.Name, key.Version)
			if err != nil {
				if !errors.Is(err, pypi.ErrPackageNotFound) {
					log.Error().Err(err).Str("name", key.Name).Str("version", key.Version).Msg("PyPI metadata lookup failed")
				}
				return nil
			}
			return release
		})
	}

	for _, release := range p.Wait() {
		if release == nil {
			continue
		}
		scan := &db.Scan{
			Name:     release.Name,
			Version:  release.Version,
			Status:   db.ScanStatusQueued,
			QueuedBy: subject,
		}
		for _, url := range release.DownloadURLs {
			scan.DownloadURLs = append(scan.DownloadURLs, db.DownloadURL{URL: url})
		}
		if _, err := s.store.InsertScan(scan); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return err
		}
		metrics.PackagesIngested.Inc()
		metrics.PackagesInQueue.Inc()
	}
	return nil
}
