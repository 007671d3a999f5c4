package api

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgshield/pkgshield/pkg/lifecycle"
)

func TestGetScansHandler(t *testing.T) {
	store := testStore(t)
	app := testApp(testService(t, lifecycle.Options{Store: store}))
	app.Get("/scans", GetScansHandler)

	seedFinished(t, store, "evil", "1.0.0", 9, []string{"obfuscation"})
	seedFinished(t, store, "benign", "1.0.0", 3, nil)

	since := time.Now().UTC().Add(-time.Hour).Unix()
	resp, err := app.Test(httptest.NewRequest("GET", fmt.Sprintf("/scans?since=%d", since), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var scans GetScansResponse
	decode(t, resp, &scans)
	assert.ElementsMatch(t, []PackageSpecifier{
		{Name: "evil", Version: "1.0.0"},
		{Name: "benign", Version: "1.0.0"},
	}, scans.AllScans)
	require.Len(t, scans.MaliciousPackages, 1)
	assert.Equal(t, "evil", scans.MaliciousPackages[0].Name)
	assert.EqualValues(t, 9, scans.MaliciousPackages[0].Score)
	assert.Equal(t, "https://inspector.example.com/evil/1.0.0", scans.MaliciousPackages[0].InspectorURL)
	assert.Equal(t, []string{"obfuscation"}, scans.MaliciousPackages[0].Rules)
}

func TestGetScansHandlerMissingSince(t *testing.T) {
	app := testApp(testService(t, lifecycle.Options{}))
	app.Get("/scans", GetScansHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/scans", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "since must be a unix timestamp", errorDetail(t, resp))
}

func TestGetScansHandlerEmpty(t *testing.T) {
	app := testApp(testService(t, lifecycle.Options{}))
	app.Get("/scans", GetScansHandler)

	since := time.Now().UTC().Add(time.Hour).Unix()
	resp, err := app.Test(httptest.NewRequest("GET", fmt.Sprintf("/scans?since=%d", since), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Clients expect arrays, not nulls
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"all_scans": [], "malicious_packages": []}`, string(body))
}
