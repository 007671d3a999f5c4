package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertRuleNames(t *testing.T) {
	conn := testConnection(t)

	err := conn.UpsertRuleNames([]string{"obfuscation", "exfiltration"})
	require.NoError(t, err)

	// Overlapping upsert must not duplicate rows
	err = conn.UpsertRuleNames([]string{"exfiltration", "typosquat"})
	require.NoError(t, err)

	rules, err := conn.GetRulesByNames([]string{"obfuscation", "exfiltration", "typosquat"})
	require.NoError(t, err)
	assert.Len(t, rules, 3)

	assert.NoError(t, conn.UpsertRuleNames(nil))
}

func TestGetRulesByNamesEmpty(t *testing.T) {
	conn := testConnection(t)

	rules, err := conn.GetRulesByNames(nil)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestRulesSharedAcrossScans(t *testing.T) {
	conn := testConnection(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	first, err := conn.InsertScan(queuedScan("requests", "2.31.0", now))
	require.NoError(t, err)
	second, err := conn.InsertScan(queuedScan("flask", "3.0.0", now))
	require.NoError(t, err)

	err = conn.FinalizeSuccess(first.ScanID, successVerdict("requests", "2.31.0"), now)
	require.NoError(t, err)
	err = conn.FinalizeSuccess(second.ScanID, successVerdict("flask", "3.0.0"), now)
	require.NoError(t, err)

	// Both scans matched the same two rules, the rule table holds one row each
	rules, err := conn.GetRulesByNames([]string{"obfuscation", "exfiltration"})
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}
