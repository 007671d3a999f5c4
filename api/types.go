package api

import (
	"encoding/json"
	"time"

	"github.com/pkgshield/pkgshield/db"
)

// Error is the error payload returned by every endpoint.
type Error struct {
	Detail string `json:"detail"`
}

// Package is the wire representation of a scan. Timestamps are unix
// seconds.
type Package struct {
	ScanID        string          `json:"scan_id"`
	Name          string          `json:"name"`
	Version       string          `json:"version"`
	Status        string          `json:"status"`
	Score         *int64          `json:"score"`
	InspectorURL  *string         `json:"inspector_url"`
	Rules         []string        `json:"rules"`
	DownloadURLs  []string        `json:"download_urls"`
	QueuedAt      int64           `json:"queued_at"`
	QueuedBy      string          `json:"queued_by"`
	ReportedAt    *int64          `json:"reported_at"`
	ReportedBy    *string         `json:"reported_by"`
	PendingAt     *int64          `json:"pending_at"`
	PendingBy     *string         `json:"pending_by"`
	FinishedAt    *int64          `json:"finished_at"`
	FinishedBy    *string         `json:"finished_by"`
	CommitHash    *string         `json:"commit_hash"`
	Distributions json.RawMessage `json:"distributions"`
}

func unixOrNil(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ts := t.Unix()
	return &ts
}

// PackageFromScan projects a scan row onto the wire shape.
func PackageFromScan(scan *db.Scan) Package {
	pkg := Package{
		ScanID:       scan.ScanID.String(),
		Name:         scan.Name,
		Version:      scan.Version,
		Status:       string(scan.Status),
		Score:        scan.Score,
		InspectorURL: scan.InspectorURL,
		Rules:        scan.RuleNames(),
		DownloadURLs: scan.DistributionURLs(),
		QueuedAt:     scan.QueuedAt.Unix(),
		QueuedBy:     scan.QueuedBy,
		ReportedAt:   unixOrNil(scan.ReportedAt),
		ReportedBy:   scan.ReportedBy,
		PendingAt:    unixOrNil(scan.PendingAt),
		PendingBy:    scan.PendingBy,
		FinishedAt:   unixOrNil(scan.FinishedAt),
		FinishedBy:   scan.FinishedBy,
		CommitHash:   scan.CommitHash,
	}
	if len(scan.Distributions) > 0 {
		pkg.Distributions = json.RawMessage(scan.Distributions)
	}
	return pkg
}

// PackageSpecifier identifies a package release by name and version.
type PackageSpecifier struct {
	Name    string `json:"name" validate:"required"`
	Version string `json:"version" validate:"required"`
}

// ScanResultBody is the payload a scanner submits for a completed job.
// A non-null reason marks the scan as failed and every other result
// field is ignored.
type ScanResultBody struct {
	Name          string          `json:"name" validate:"required"`
	Version       string          `json:"version" validate:"required"`
	Commit        string          `json:"commit"`
	Score         int64           `json:"score"`
	InspectorURL  *string         `json:"inspector_url"`
	RulesMatched  []string        `json:"rules_matched"`
	Distributions json.RawMessage `json:"distributions,omitempty"`
	Reason        *string         `json:"reason"`
}

// ReportPackageBody is the payload for reporting a package version as
// malicious.
type ReportPackageBody struct {
	Name                  string  `json:"name" validate:"required"`
	Version               string  `json:"version" validate:"required"`
	InspectorURL          *string `json:"inspector_url"`
	AdditionalInformation *string `json:"additional_information"`
}

// JobResult describes a job handed to a scanner: the distribution
// archives to scan and the rule commit to run against.
type JobResult struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Distributions []string `json:"distributions"`
	Hash          string   `json:"hash"`
}

// NoJob is returned when no scans are ready to be worked on.
type NoJob struct {
	Detail string `json:"detail"`
}

// QueuePackageResponse carries the scan ID of a freshly queued package.
type QueuePackageResponse struct {
	ID string `json:"id"`
}

// GetRules is the rule snapshot served to scanner clients.
type GetRules struct {
	Hash  string            `json:"hash"`
	Rules map[string]string `json:"rules"`
}

// MaliciousPackage is a finished scan that crossed the score threshold.
type MaliciousPackage struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Score        int64    `json:"score"`
	InspectorURL string   `json:"inspector_url"`
	Rules        []string `json:"rules"`
}

// GetScansResponse lists recently finished scans and the malicious
// subset.
type GetScansResponse struct {
	AllScans          []PackageSpecifier `json:"all_scans"`
	MaliciousPackages []MaliciousPackage `json:"malicious_packages"`
}

// ServerMetadata identifies the running server build and rule snapshot.
type ServerMetadata struct {
	ServerCommit string `json:"server_commit"`
	RulesCommit  string `json:"rules_commit"`
}
