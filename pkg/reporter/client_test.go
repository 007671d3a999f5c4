package reporter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendObservation(t *testing.T) {
	var received Observation
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/report/requests", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	err := client.SendObservation(context.Background(), "requests", Observation{
		Kind:         KindMalware,
		Summary:      "matched several exfiltration rules",
		InspectorURL: "https://inspector.example.com/requests/2.31.0",
		Extra:        map[string]interface{}{"yara_rules": []string{"exfiltration"}},
	})
	require.NoError(t, err)

	assert.Equal(t, KindMalware, received.Kind)
	assert.Equal(t, "matched several exfiltration rules", received.Summary)
	assert.Equal(t, "https://inspector.example.com/requests/2.31.0", received.InspectorURL)
	assert.Contains(t, received.Extra, "yara_rules")
}

func TestSendObservationRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	err := client.SendObservation(context.Background(), "requests", Observation{Kind: KindMalware})
	assert.Error(t, err)
}

func TestSendObservationUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, nil)
	err := client.SendObservation(context.Background(), "requests", Observation{Kind: KindMalware})
	assert.Error(t, err)
}
