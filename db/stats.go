package db

import (
	"time"
)

// ScanStats summarizes catalogue activity over a time window.
type ScanStats struct {
	Ingested        int64   `json:"ingested"`
	AverageScanTime float64 `json:"average_scan_time"`
	Failed          int64   `json:"failed"`
}

// GetScanStats returns, for scans queued after since: the ingested
// count, the mean scan duration in seconds (finished_at - pending_at
// over scans that have both timestamps) and the failed count.
func (d *DatabaseConnection) GetScanStats(since time.Time) (ScanStats, error) {
	var stats ScanStats

	err := d.db.Model(&Scan{}).
		Where("queued_at > ?", since).
		Count(&stats.Ingested).Error
	if err != nil {
		return stats, err
	}

	// Interval arithmetic differs between the dialects
	avgExpr := "COALESCE(AVG(EXTRACT(EPOCH FROM (finished_at - pending_at))), 0)"
	if d.db.Dialector.Name() == "sqlite" {
		avgExpr = "COALESCE(AVG(strftime('%s', finished_at) - strftime('%s', pending_at)), 0)"
	}
	err = d.db.Model(&Scan{}).
		Select(avgExpr).
		Where("pending_at IS NOT NULL").
		Where("finished_at IS NOT NULL").
		Where("queued_at > ?", since).
		Scan(&stats.AverageScanTime).Error
	if err != nil {
		return stats, err
	}

	err = d.db.Model(&Scan{}).
		Where("status = ?", ScanStatusFailed).
		Where("queued_at > ?", since).
		Count(&stats.Failed).Error
	return stats, err
}
