package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgshield/pkgshield/db"
	"github.com/pkgshield/pkgshield/pkg/pypi"
)

func TestQueuePackage(t *testing.T) {
	store := testStore(t)
	client := testPyPI(t, map[db.ScanKey]pypi.Release{
		{Name: "requests", Version: "2.31.0"}: {
			Name:         "Requests",
			Version:      "2.31.0",
			DownloadURLs: []string{"https://files.example.com/requests-2.31.0.tar.gz"},
		},
	}, nil)
	svc := newTestService(t, Options{Store: store, PyPI: client})

	scan, err := svc.QueuePackage(context.Background(), "requests", "2.31.0", "admin-1")
	require.NoError(t, err)

	// The requested spelling wins over the index's canonical one
	fetched, err := store.GetScanByNameVersion("requests", "2.31.0")
	require.NoError(t, err)
	assert.Equal(t, scan.ScanID, fetched.ScanID)
	assert.Equal(t, db.ScanStatusQueued, fetched.Status)
	assert.Equal(t, "admin-1", fetched.QueuedBy)
	require.Len(t, fetched.DownloadURLs, 1)
	assert.Equal(t, "https://files.example.com/requests-2.31.0.tar.gz", fetched.DownloadURLs[0].URL)
}

func TestQueuePackageAlreadyQueued(t *testing.T) {
	store := testStore(t)
	client := testPyPI(t, map[db.ScanKey]pypi.Release{
		{Name: "requests", Version: "2.31.0"}: {Name: "requests", Version: "2.31.0"},
	}, nil)
	svc := newTestService(t, Options{Store: store, PyPI: client})

	_, err := svc.QueuePackage(context.Background(), "requests", "2.31.0", "admin-1")
	require.NoError(t, err)

	_, err = svc.QueuePackage(context.Background(), "requests", "2.31.0", "admin-2")
	require.Error(t, err)
	assert.Equal(t, KindAlreadyExists, Kind(err))
	assert.EqualError(t, err, "Package requests@2.31.0 is already queued for scanning")
}

func TestQueuePackageNotOnPyPI(t *testing.T) {
	svc := newTestService(t, Options{PyPI: testPyPI(t, nil, nil)})

	_, err := svc.QueuePackage(context.Background(), "ghost", "1.0.0", "admin-1")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, Kind(err))
	assert.EqualError(t, err, "Package ghost@1.0.0 was not found on PyPI")
}

func TestQueuePackagesBatch(t *testing.T) {
	store := testStore(t)
	client := testPyPI(t, map[db.ScanKey]pypi.Release{
		{Name: "requests", Version: "2.31.0"}: {
			Name:         "Requests",
			Version:      "2.31.0",
			DownloadURLs: []string{"https://files.example.com/requests-2.31.0.tar.gz"},
		},
		{Name: "flask", Version: "3.0.0"}: {Name: "Flask", Version: "3.0.0"},
	}, nil)
	svc := newTestService(t, Options{Store: store, PyPI: client})

	// flask is listed twice and ghost is unknown to the index
	err := svc.QueuePackagesBatch(context.Background(), []db.ScanKey{
		{Name: "requests", Version: "2.31.0"},
		{Name: "flask", Version: "3.0.0"},
		{Name: "flask", Version: "3.0.0"},
		{Name: "ghost", Version: "1.0.0"},
	}, "admin-1")
	require.NoError(t, err)

	// Batch inserts keep the index's canonical spelling
	scan, err := store.GetScanByNameVersion("Requests", "2.31.0")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", scan.QueuedBy)
	assert.Len(t, scan.DownloadURLs, 1)

	_, err = store.GetScanByNameVersion("Flask", "3.0.0")
	require.NoError(t, err)

	scans, err := store.FindScansByName("ghost")
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestQueuePackagesBatchSkipsKnownReleases(t *testing.T) {
	store := testStore(t)
	client := testPyPI(t, map[db.ScanKey]pypi.Release{
		{Name: "flask", Version: "3.0.0"}: {Name: "flask", Version: "3.0.0"},
	}, nil)
	svc := newTestService(t, Options{Store: store, PyPI: client})

	queuedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err := store.InsertScan(&db.Scan{
		Name: "requests", Version: "2.31.0", Status: db.ScanStatusQueued,
		QueuedAt: queuedAt, QueuedBy: "admin-1",
	})
	require.NoError(t, err)

	// requests is already in the catalogue, only flask hits the index
	err = svc.QueuePackagesBatch(context.Background(), []db.ScanKey{
		{Name: "requests", Version: "2.31.0"},
		{Name: "flask", Version: "3.0.0"},
	}, "admin-2")
	require.NoError(t, err)

	requests, err := store.GetScanByNameVersion("requests", "2.31.0")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", requests.QueuedBy)

	flask, err := store.GetScanByNameVersion("flask", "3.0.0")
	require.NoError(t, err)
	assert.Equal(t, "admin-2", flask.QueuedBy)
}
