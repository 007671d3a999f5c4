package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConnection(t *testing.T) *DatabaseConnection {
	t.Helper()
	viper.Set("db.type", "sqlite")
	viper.Set("db.sqlite_path", filepath.Join(t.TempDir(), "scans.db"))
	conn, err := Connect()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func queuedScan(name, version string, queuedAt time.Time) *Scan {
	return &Scan{
		Name:     name,
		Version:  version,
		Status:   ScanStatusQueued,
		QueuedAt: queuedAt,
		QueuedBy: "tester",
		DownloadURLs: []DownloadURL{
			{URL: "https://files.example.com/" + name + "-" + version + ".tar.gz"},
		},
	}
}

func TestInsertScan(t *testing.T) {
	conn := testConnection(t)

	scan, err := conn.InsertScan(queuedScan("requests", "2.31.0", time.Now().UTC()))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, scan.ScanID)

	fetched, err := conn.GetScanByNameVersion("requests", "2.31.0")
	require.NoError(t, err)
	assert.Equal(t, ScanStatusQueued, fetched.Status)
	assert.Equal(t, "tester", fetched.QueuedBy)
	assert.Len(t, fetched.DownloadURLs, 1)

	// Same (name, version) pair again
	_, err = conn.InsertScan(queuedScan("requests", "2.31.0", time.Now().UTC()))
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// Same name, different version is fine
	_, err = conn.InsertScan(queuedScan("requests", "2.32.0", time.Now().UTC()))
	assert.NoError(t, err)
}

func TestGetScanByNameVersionNotFound(t *testing.T) {
	conn := testConnection(t)

	_, err := conn.GetScanByNameVersion("ghost", "0.0.1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestScanFilterValid(t *testing.T) {
	name := "requests"
	version := "2.31.0"
	since := time.Now().UTC()

	cases := []struct {
		label  string
		filter ScanFilter
		valid  bool
	}{
		{"none", ScanFilter{}, false},
		{"name", ScanFilter{Name: &name}, true},
		{"since", ScanFilter{Since: &since}, true},
		{"name and version", ScanFilter{Name: &name, Version: &version}, true},
		{"version only", ScanFilter{Version: &version}, false},
		{"name and since", ScanFilter{Name: &name, Since: &since}, false},
		{"version and since", ScanFilter{Version: &version, Since: &since}, false},
		{"all three", ScanFilter{Name: &name, Version: &version, Since: &since}, false},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			assert.Equal(t, tc.valid, tc.filter.Valid())
		})
	}
}

func TestFindScans(t *testing.T) {
	conn := testConnection(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := conn.InsertScan(queuedScan("requests", "2.31.0", base))
	require.NoError(t, err)
	_, err = conn.InsertScan(queuedScan("requests", "2.32.0", base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = conn.InsertScan(queuedScan("flask", "3.0.0", base.Add(2*time.Minute)))
	require.NoError(t, err)

	name := "requests"
	scans, err := conn.FindScans(ScanFilter{Name: &name})
	require.NoError(t, err)
	require.Len(t, scans, 2)
	// Most recently queued first
	assert.Equal(t, "2.32.0", scans[0].Version)
	assert.Equal(t, "2.31.0", scans[1].Version)

	version := "2.31.0"
	scans, err = conn.FindScans(ScanFilter{Name: &name, Version: &version})
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Len(t, scans[0].DownloadURLs, 1)

	version = "9.9.9"
	scans, err = conn.FindScans(ScanFilter{Name: &name, Version: &version})
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestFindScansInvalidCombination(t *testing.T) {
	conn := testConnection(t)

	version := "2.31.0"
	_, err := conn.FindScans(ScanFilter{Version: &version})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestFindScansSince(t *testing.T) {
	conn := testConnection(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	early := base.Add(-2 * time.Hour)
	late := base.Add(2 * time.Hour)
	scans := []*Scan{
		{Name: "old", Version: "1.0.0", Status: ScanStatusFinished, QueuedAt: base, FinishedAt: &early},
		{Name: "new", Version: "1.0.0", Status: ScanStatusFinished, QueuedAt: base, FinishedAt: &late},
		{Name: "unfinished", Version: "1.0.0", Status: ScanStatusQueued, QueuedAt: base},
	}
	for _, scan := range scans {
		_, err := conn.InsertScan(scan)
		require.NoError(t, err)
	}

	since := base
	found, err := conn.FindScans(ScanFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "new", found[0].Name)
}

func TestFindScansPagination(t *testing.T) {
	conn := testConnection(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	name := "requests"
	for i, version := range []string{"1.0.0", "1.1.0", "1.2.0"} {
		_, err := conn.InsertScan(queuedScan(name, version, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	page1, err := conn.FindScans(ScanFilter{Name: &name, Pagination: &Pagination{Page: 1, PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := conn.FindScans(ScanFilter{Name: &name, Pagination: &Pagination{Page: 2, PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, page2, 1)
}

func TestFindScansByName(t *testing.T) {
	conn := testConnection(t)
	now := time.Now().UTC()

	_, err := conn.InsertScan(queuedScan("requests", "2.31.0", now))
	require.NoError(t, err)
	_, err = conn.InsertScan(queuedScan("requests", "2.32.0", now))
	require.NoError(t, err)
	_, err = conn.InsertScan(queuedScan("flask", "3.0.0", now))
	require.NoError(t, err)

	scans, err := conn.FindScansByName("requests")
	require.NoError(t, err)
	assert.Len(t, scans, 2)

	scans, err = conn.FindScansByName("ghost")
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestFindExistingKeys(t *testing.T) {
	conn := testConnection(t)
	now := time.Now().UTC()

	_, err := conn.InsertScan(queuedScan("requests", "2.31.0", now))
	require.NoError(t, err)
	_, err = conn.InsertScan(queuedScan("flask", "3.0.0", now))
	require.NoError(t, err)

	existing, err := conn.FindExistingKeys([]ScanKey{
		{Name: "requests", Version: "2.31.0"},
		{Name: "requests", Version: "9.9.9"},
		{Name: "flask", Version: "3.0.0"},
	})
	require.NoError(t, err)
	assert.True(t, existing[ScanKey{Name: "requests", Version: "2.31.0"}])
	assert.True(t, existing[ScanKey{Name: "flask", Version: "3.0.0"}])
	assert.False(t, existing[ScanKey{Name: "requests", Version: "9.9.9"}])

	existing, err = conn.FindExistingKeys(nil)
	require.NoError(t, err)
	assert.Empty(t, existing)
}

func TestLeaseJobs(t *testing.T) {
	conn := testConnection(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	timeout := 10 * time.Minute

	_, err := conn.InsertScan(queuedScan("requests", "2.31.0", base))
	require.NoError(t, err)
	_, err = conn.InsertScan(queuedScan("flask", "3.0.0", base.Add(time.Minute)))
	require.NoError(t, err)

	// Oldest queued row goes first
	leased, err := conn.LeaseJobs(1, "worker-1", base.Add(5*time.Minute), timeout)
	require.NoError(t, err)
	require.Len(t, leased, 1)
	assert.Equal(t, "requests", leased[0].Name)
	assert.Equal(t, ScanStatusPending, leased[0].Status)
	require.NotNil(t, leased[0].PendingBy)
	assert.Equal(t, "worker-1", *leased[0].PendingBy)
	assert.Len(t, leased[0].DownloadURLs, 1)

	fetched, err := conn.GetScanByNameVersion("requests", "2.31.0")
	require.NoError(t, err)
	assert.Equal(t, ScanStatusPending, fetched.Status)

	// Fresh pending lease is not up for grabs
	leased, err = conn.LeaseJobs(2, "worker-2", base.Add(6*time.Minute), timeout)
	require.NoError(t, err)
	require.Len(t, leased, 1)
	assert.Equal(t, "flask", leased[0].Name)

	// After the timeout both leases are reclaimed, oldest lease first
	leased, err = conn.LeaseJobs(2, "worker-3", base.Add(30*time.Minute), timeout)
	require.NoError(t, err)
	require.Len(t, leased, 2)
	assert.Equal(t, "requests", leased[0].Name)
	assert.Equal(t, "flask", leased[1].Name)
	for _, scan := range leased {
		require.NotNil(t, scan.PendingBy)
		assert.Equal(t, "worker-3", *scan.PendingBy)
	}
}

func TestLeaseJobsPrefersUnleasedRows(t *testing.T) {
	conn := testConnection(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	timeout := 10 * time.Minute

	// stale was queued earlier and leased once, fresh was never leased
	_, err := conn.InsertScan(queuedScan("stale", "1.0.0", base))
	require.NoError(t, err)
	leased, err := conn.LeaseJobs(1, "worker-1", base.Add(time.Minute), timeout)
	require.NoError(t, err)
	require.Len(t, leased, 1)

	_, err = conn.InsertScan(queuedScan("fresh", "1.0.0", base.Add(2*time.Minute)))
	require.NoError(t, err)

	leased, err = conn.LeaseJobs(2, "worker-2", base.Add(time.Hour), timeout)
	require.NoError(t, err)
	require.Len(t, leased, 2)
	assert.Equal(t, "fresh", leased[0].Name)
	assert.Equal(t, "stale", leased[1].Name)
}

func TestLeaseJobsIgnoresFinishedRows(t *testing.T) {
	conn := testConnection(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	finishedAt := base
	_, err := conn.InsertScan(&Scan{
		Name: "done", Version: "1.0.0", Status: ScanStatusFinished,
		QueuedAt: base, FinishedAt: &finishedAt,
	})
	require.NoError(t, err)
	_, err = conn.InsertScan(&Scan{
		Name: "broken", Version: "1.0.0", Status: ScanStatusFailed,
		QueuedAt: base, FinishedAt: &finishedAt,
	})
	require.NoError(t, err)

	leased, err := conn.LeaseJobs(5, "worker-1", base.Add(time.Hour), 10*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, leased)
}

func TestLeaseJobsEmptyBatch(t *testing.T) {
	conn := testConnection(t)

	leased, err := conn.LeaseJobs(0, "worker-1", time.Now().UTC(), 10*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, leased)
}

func TestListQueuedExcluding(t *testing.T) {
	conn := testConnection(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := conn.InsertScan(queuedScan("a", "1.0.0", base))
	require.NoError(t, err)
	_, err = conn.InsertScan(queuedScan("b", "1.0.0", base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = conn.InsertScan(queuedScan("c", "1.0.0", base.Add(2*time.Minute)))
	require.NoError(t, err)
	finishedAt := base
	_, err = conn.InsertScan(&Scan{
		Name: "d", Version: "1.0.0", Status: ScanStatusFinished,
		QueuedAt: base, FinishedAt: &finishedAt,
	})
	require.NoError(t, err)

	scans, err := conn.ListQueuedExcluding(10, nil)
	require.NoError(t, err)
	require.Len(t, scans, 3)
	// Oldest queued first
	assert.Equal(t, "a", scans[0].Name)

	scans, err = conn.ListQueuedExcluding(10, []ScanKey{{Name: "a", Version: "1.0.0"}})
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, "b", scans[0].Name)

	scans, err = conn.ListQueuedExcluding(1, nil)
	require.NoError(t, err)
	assert.Len(t, scans, 1)
}

func TestMarkReported(t *testing.T) {
	conn := testConnection(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	scan, err := conn.InsertScan(queuedScan("requests", "2.31.0", now))
	require.NoError(t, err)
	assert.Nil(t, scan.ReportedAt)

	err = conn.MarkReported(scan.ScanID, "admin", now.Add(time.Hour))
	require.NoError(t, err)

	fetched, err := conn.GetScanByNameVersion("requests", "2.31.0")
	require.NoError(t, err)
	require.NotNil(t, fetched.ReportedAt)
	require.NotNil(t, fetched.ReportedBy)
	assert.Equal(t, "admin", *fetched.ReportedBy)
}
