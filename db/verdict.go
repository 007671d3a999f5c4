package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScanVerdict is a worker's terminal result for one scan. A non-nil
// FailReason marks a failure verdict; everything else describes success.
type ScanVerdict struct {
	Name    string
	Version string
	Subject string

	Commit        string
	Score         int64
	InspectorURL  *string
	RulesMatched  []string
	Distributions datatypes.JSON

	FailReason *string
}

// Failed reports whether this is a failure verdict.
func (v ScanVerdict) Failed() bool {
	return v.FailReason != nil
}

// Key returns the (name, version) pair the verdict belongs to.
func (v ScanVerdict) Key() ScanKey {
	return ScanKey{Name: v.Name, Version: v.Version}
}

// applyVerdict writes a verdict onto a scan row inside the given
// transaction. Success resolves the matched rule names against the rule
// relation, creating missing rows, and attaches the union to the scan.
func applyVerdict(tx *gorm.DB, scan *Scan, verdict ScanVerdict, now time.Time) error {
	if verdict.Failed() {
		return tx.Model(scan).Updates(map[string]interface{}{
			"status":      ScanStatusFailed,
			"finished_at": now,
			"fail_reason": *verdict.FailReason,
		}).Error
	}

	updates := map[string]interface{}{
		"status":        ScanStatusFinished,
		"finished_at":   now,
		"finished_by":   verdict.Subject,
		"commit_hash":   verdict.Commit,
		"score":         verdict.Score,
		"inspector_url": verdict.InspectorURL,
	}
	if len(verdict.Distributions) > 0 {
		updates["distributions"] = verdict.Distributions
	}
	if err := tx.Model(scan).Updates(updates).Error; err != nil {
		return err
	}

	rules, err := resolveRules(tx, verdict.RulesMatched)
	if err != nil {
		return err
	}
	if len(rules) > 0 {
		if err := tx.Model(scan).Association("Rules").Append(&rules); err != nil {
			return err
		}
	}
	return nil
}

// FinalizeSuccess marks a scan FINISHED with the verdict's result data.
// A scan that is already FINISHED is left untouched.
func (d *DatabaseConnection) FinalizeSuccess(scanID uuid.UUID, verdict ScanVerdict, now time.Time) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var scan Scan
		if err := tx.Where("scan_id = ?", scanID).First(&scan).Error; err != nil {
			return err
		}
		if scan.Status == ScanStatusFinished {
			return nil
		}
		if err := applyVerdict(tx, &scan, verdict, now); err != nil {
			return err
		}
		log.Info().
			Str("name", scan.Name).
			Str("version", scan.Version).
			Str("finished_by", verdict.Subject).
			Strs("rules_matched", verdict.RulesMatched).
			Msg("Scan results submitted")
		return nil
	})
}

// FinalizeFailure marks a scan FAILED with the worker's reason. A scan
// that is already FINISHED is left untouched; repeat failures overwrite
// the previous reason.
func (d *DatabaseConnection) FinalizeFailure(scanID uuid.UUID, reason string, now time.Time) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var scan Scan
		if err := tx.Where("scan_id = ?", scanID).First(&scan).Error; err != nil {
			return err
		}
		if scan.Status == ScanStatusFinished {
			return nil
		}
		verdict := ScanVerdict{Name: scan.Name, Version: scan.Version, FailReason: &reason}
		if err := applyVerdict(tx, &scan, verdict, now); err != nil {
			return err
		}
		log.Error().Str("name", scan.Name).Str("version", scan.Version).Str("reason", reason).Msg("Scan failed")
		return nil
	})
}

// PersistVerdicts writes a batch of buffered verdicts in one transaction.
// Verdicts for unknown (name, version) pairs or for scans that are
// already FINISHED are logged and dropped.
func (d *DatabaseConnection) PersistVerdicts(verdicts []ScanVerdict, now time.Time) error {
	if len(verdicts) == 0 {
		return nil
	}
	return d.db.Transaction(func(tx *gorm.DB) error {
		pairs := make([][]interface{}, 0, len(verdicts))
		for _, verdict := range verdicts {
			pairs = append(pairs, []interface{}{verdict.Name, verdict.Version})
		}
		var scans []*Scan
		if err := tx.Where("(name, version) IN ?", pairs).Find(&scans).Error; err != nil {
			return err
		}
		byKey := make(map[ScanKey]*Scan, len(scans))
		for _, scan := range scans {
			byKey[ScanKey{Name: scan.Name, Version: scan.Version}] = scan
		}

		for _, verdict := range verdicts {
			scan, ok := byKey[verdict.Key()]
			if !ok {
				log.Warn().Str("name", verdict.Name).Str("version", verdict.Version).
					Msg("Verdict submitted for a scan that doesn't exist, dropping")
				continue
			}
			if scan.Status == ScanStatusFinished {
				log.Warn().Str("name", verdict.Name).Str("version", verdict.Version).
					Msg("Scan is already in a finished state, dropping verdict")
				continue
			}
			if err := applyVerdict(tx, scan, verdict, now); err != nil {
				return err
			}
			if verdict.Failed() {
				scan.Status = ScanStatusFailed
			} else {
				scan.Status = ScanStatusFinished
			}
		}
		return nil
	})
}
