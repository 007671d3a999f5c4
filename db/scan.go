package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScanStatus represents the lifecycle state of a scan
type ScanStatus string

const (
	ScanStatusQueued   ScanStatus = "queued"
	ScanStatusPending  ScanStatus = "pending"
	ScanStatusFinished ScanStatus = "finished"
	ScanStatusFailed   ScanStatus = "failed"
)

// ErrInvalidQuery is returned when a scan lookup uses a disallowed
// parameter combination.
var ErrInvalidQuery = errors.New("invalid query parameter combination")

// Scan represents a single (name, version) package submission and its
// lifecycle record. Status moves queued -> pending -> finished/failed,
// with pending scans becoming eligible again once their lease expires.
type Scan struct {
	ScanID  uuid.UUID  `gorm:"type:uuid;primaryKey;column:scan_id" json:"scan_id"`
	Name    string     `gorm:"uniqueIndex:idx_scans_name_version;not null" json:"name"`
	Version string     `gorm:"uniqueIndex:idx_scans_name_version;not null" json:"version"`
	Status  ScanStatus `gorm:"size:20;not null" json:"status"`

	Score        *int64  `json:"score"`
	InspectorURL *string `json:"inspector_url"`
	CommitHash   *string `json:"commit_hash"`
	FailReason   *string `json:"fail_reason"`

	QueuedAt   time.Time  `gorm:"not null" json:"queued_at"`
	PendingAt  *time.Time `json:"pending_at"`
	FinishedAt *time.Time `gorm:"index" json:"finished_at"`
	ReportedAt *time.Time `json:"reported_at"`

	QueuedBy   string  `json:"queued_by"`
	PendingBy  *string `json:"pending_by"`
	FinishedBy *string `json:"finished_by"`
	ReportedBy *string `json:"reported_by"`

	// Per distribution match detail reported by the scanner, stored verbatim
	Distributions datatypes.JSON `json:"distributions,omitempty"`

	Rules        []Rule        `gorm:"many2many:package_rules;foreignKey:ScanID;joinForeignKey:ScanID;References:ID;joinReferences:RuleID" json:"rules"`
	DownloadURLs []DownloadURL `gorm:"foreignKey:ScanID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"download_urls"`
}

func (s *Scan) BeforeCreate(tx *gorm.DB) error {
	if s.ScanID == uuid.Nil {
		s.ScanID = uuid.New()
	}
	if s.Status == "" {
		s.Status = ScanStatusQueued
	}
	if s.QueuedAt.IsZero() {
		s.QueuedAt = time.Now().UTC()
	}
	return nil
}

// RuleNames returns the names of the rules matched by this scan.
func (s *Scan) RuleNames() []string {
	names := make([]string, 0, len(s.Rules))
	for _, rule := range s.Rules {
		names = append(names, rule.Name)
	}
	return names
}

// DistributionURLs returns the distribution archive URLs of this scan.
func (s *Scan) DistributionURLs() []string {
	urls := make([]string, 0, len(s.DownloadURLs))
	for _, downloadURL := range s.DownloadURLs {
		urls = append(urls, downloadURL.URL)
	}
	return urls
}

// TableHeaders returns table headers for CLI output
func (s Scan) TableHeaders() []string {
	return []string{"Scan ID", "Name", "Version", "Status", "Score", "Queued At", "Finished At", "Rules"}
}

// TableRow returns a table row for CLI output
func (s Scan) TableRow() []string {
	score := "-"
	if s.Score != nil {
		score = fmt.Sprintf("%d", *s.Score)
	}
	finishedAt := "-"
	if s.FinishedAt != nil {
		finishedAt = s.FinishedAt.Format(time.RFC3339)
	}
	return []string{
		s.ScanID.String(),
		s.Name,
		s.Version,
		string(s.Status),
		score,
		s.QueuedAt.Format(time.RFC3339),
		finishedAt,
		strings.Join(s.RuleNames(), ", "),
	}
}

// String provides a basic textual representation
func (s Scan) String() string {
	return fmt.Sprintf("%s %s@%s status=%s", s.ScanID, s.Name, s.Version, s.Status)
}

// DownloadURL is a single distribution archive URL owned by one scan.
type DownloadURL struct {
	BaseUUIDModel
	ScanID uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	URL    string    `gorm:"not null" json:"url"`
}

// ScanKey identifies a scan by its unique (name, version) pair.
type ScanKey struct {
	Name    string
	Version string
}

// ScanFilter represents the parameters of a scan lookup. Name, Version
// and Since carry presence semantics, a nil field was not requested.
type ScanFilter struct {
	Name       *string
	Version    *string
	Since      *time.Time
	Pagination *Pagination
}

// Valid reports whether the filter uses an allowed parameter combination.
// Allowed: (name, version), (name, since), (name), (since).
func (f ScanFilter) Valid() bool {
	hasName := f.Name != nil
	hasVersion := f.Version != nil
	hasSince := f.Since != nil
	return (hasName && !hasSince) || (!hasVersion && hasSince)
}

// InsertScan creates a new scan together with its download URLs. Returns
// gorm.ErrDuplicatedKey when the (name, version) pair is already taken.
func (d *DatabaseConnection) InsertScan(scan *Scan) (*Scan, error) {
	result := d.db.Create(scan)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			log.Warn().Str("name", scan.Name).Str("version", scan.Version).Msg("Scan already queued")
		} else {
			log.Error().Err(result.Error).Str("name", scan.Name).Str("version", scan.Version).Msg("Scan creation failed")
		}
		return nil, result.Error
	}
	return scan, nil
}

// FindScans returns scans matching the filter ordered by queued_at
// descending, with rules and download URLs eagerly loaded.
func (d *DatabaseConnection) FindScans(filter ScanFilter) ([]*Scan, error) {
	if !filter.Valid() {
		return nil, ErrInvalidQuery
	}

	query := d.db.Preload("Rules").Preload("DownloadURLs").Order("queued_at DESC")
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.Version != nil {
		query = query.Where("version = ?", *filter.Version)
	}
	if filter.Since != nil {
		query = query.Where("finished_at >= ?", *filter.Since)
	}
	if filter.Pagination != nil {
		query = query.Scopes(Paginate(filter.Pagination))
	}

	var scans []*Scan
	err := query.Find(&scans).Error
	return scans, err
}

// GetScanByNameVersion returns the scan identified by (name, version)
// with its rules and download URLs loaded, or gorm.ErrRecordNotFound.
func (d *DatabaseConnection) GetScanByNameVersion(name, version string) (*Scan, error) {
	var scan Scan
	err := d.db.Preload("Rules").Preload("DownloadURLs").
		Where("name = ? AND version = ?", name, version).
		First(&scan).Error
	if err != nil {
		return nil, err
	}
	return &scan, nil
}

// FindScansByName returns every scan recorded for a package name with
// rules loaded. The report flow needs all versions of a name at once.
func (d *DatabaseConnection) FindScansByName(name string) ([]*Scan, error) {
	var scans []*Scan
	err := d.db.Preload("Rules").Where("name = ?", name).Find(&scans).Error
	return scans, err
}

// FindExistingKeys returns which of the given (name, version) pairs are
// already present in the catalogue.
func (d *DatabaseConnection) FindExistingKeys(keys []ScanKey) (map[ScanKey]bool, error) {
	existing := make(map[ScanKey]bool)
	if len(keys) == 0 {
		return existing, nil
	}
	pairs := make([][]interface{}, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, []interface{}{key.Name, key.Version})
	}
	var scans []*Scan
	err := d.db.Select("name", "version").Where("(name, version) IN ?", pairs).Find(&scans).Error
	if err != nil {
		return nil, err
	}
	for _, scan := range scans {
		existing[ScanKey{Name: scan.Name, Version: scan.Version}] = true
	}
	return existing, nil
}

// LeaseJobs atomically claims up to batch scans for a leaseholder.
// Eligible rows are QUEUED scans and PENDING scans whose lease is older
// than the timeout, ordered by pending_at NULLS FIRST then queued_at.
// Rows locked by concurrent leasers are skipped so two workers never
// receive the same scan.
func (d *DatabaseConnection) LeaseJobs(batch int, leaseholder string, now time.Time, timeout time.Duration) ([]*Scan, error) {
	if batch <= 0 {
		return nil, nil
	}
	cutoff := now.Add(-timeout)

	var leased []*Scan
	err := d.db.Transaction(func(tx *gorm.DB) error {
		query := tx.
			Where(
				tx.Where("status = ?", ScanStatusQueued).
					Or(tx.Where("status = ?", ScanStatusPending).Where("pending_at < ?", cutoff)),
			).
			Order("pending_at ASC NULLS FIRST, queued_at ASC").
			Limit(batch)
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := query.Find(&leased).Error; err != nil {
			return err
		}
		if len(leased) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(leased))
		for _, scan := range leased {
			ids = append(ids, scan.ScanID)
		}
		err := tx.Model(&Scan{}).Where("scan_id IN ?", ids).Updates(map[string]interface{}{
			"status":     ScanStatusPending,
			"pending_at": now,
			"pending_by": leaseholder,
		}).Error
		if err != nil {
			return err
		}

		var urls []DownloadURL
		if err := tx.Where("scan_id IN ?", ids).Find(&urls).Error; err != nil {
			return err
		}
		urlsByScan := make(map[uuid.UUID][]DownloadURL, len(leased))
		for _, downloadURL := range urls {
			urlsByScan[downloadURL.ScanID] = append(urlsByScan[downloadURL.ScanID], downloadURL)
		}

		pendingAt := now
		for _, scan := range leased {
			scan.Status = ScanStatusPending
			scan.PendingAt = &pendingAt
			holder := leaseholder
			scan.PendingBy = &holder
			scan.DownloadURLs = urlsByScan[scan.ScanID]
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("leaseholder", leaseholder).Int("batch", batch).Msg("Job lease failed")
		return nil, err
	}
	return leased, nil
}

// ListQueuedExcluding returns up to limit QUEUED scans whose (name,
// version) is not in the exclude set, oldest queued first, with rules
// and download URLs loaded.
func (d *DatabaseConnection) ListQueuedExcluding(limit int, exclude []ScanKey) ([]*Scan, error) {
	query := d.db.Preload("Rules").Preload("DownloadURLs").
		Where("status = ?", ScanStatusQueued).
		Order("queued_at ASC").
		Limit(limit)
	if len(exclude) > 0 {
		pairs := make([][]interface{}, 0, len(exclude))
		for _, key := range exclude {
			pairs = append(pairs, []interface{}{key.Name, key.Version})
		}
		query = query.Where("(name, version) NOT IN ?", pairs)
	}
	var scans []*Scan
	err := query.Find(&scans).Error
	return scans, err
}

// MarkReported records the subject and time a scan was reported upstream.
func (d *DatabaseConnection) MarkReported(scanID uuid.UUID, subject string, now time.Time) error {
	return d.db.Model(&Scan{}).Where("scan_id = ?", scanID).Updates(map[string]interface{}{
		"reported_at": now,
		"reported_by": subject,
	}).Error
}
