package db

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Rule is a YARA rule known to the catalogue, identified by its unique
// name. Rows are created lazily, either when the rule bundle is refreshed
// or when a verdict names a rule for the first time. Rows are never
// deleted.
type Rule struct {
	BaseUUIDModel
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// UpsertRuleNames bulk inserts the given rule names, ignoring names that
// already exist.
func (d *DatabaseConnection) UpsertRuleNames(names []string) error {
	if len(names) == 0 {
		return nil
	}
	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		rules = append(rules, Rule{Name: name})
	}
	err := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&rules).Error
	if err != nil {
		log.Error().Err(err).Int("count", len(names)).Msg("Rule upsert failed")
	}
	return err
}

// GetRulesByNames returns the rule rows matching the given names.
func (d *DatabaseConnection) GetRulesByNames(names []string) ([]Rule, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var rules []Rule
	err := d.db.Where("name IN ?", names).Find(&rules).Error
	return rules, err
}

// resolveRules returns rule rows for every given name, creating the
// missing ones inside the supplied transaction.
func resolveRules(tx *gorm.DB, names []string) ([]Rule, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var existing []Rule
	if err := tx.Where("name IN ?", names).Find(&existing).Error; err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, rule := range existing {
		known[rule.Name] = true
	}
	var created []Rule
	for _, name := range names {
		if !known[name] {
			created = append(created, Rule{Name: name})
			known[name] = true
		}
	}
	if len(created) > 0 {
		if err := tx.Create(&created).Error; err != nil {
			return nil, err
		}
	}
	return append(existing, created...), nil
}
