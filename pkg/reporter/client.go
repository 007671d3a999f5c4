package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ObservationKind mirrors the kinds accepted by the upstream index
// observation API.
type ObservationKind string

const (
	KindMalware             ObservationKind = "is_malware"
	KindDependencyConfusion ObservationKind = "is_dependency_confusion"
	KindSpam                ObservationKind = "is_spam"
	KindOther               ObservationKind = "something_else"
)

// Observation is the payload posted to the observation sink when a
// package is reported.
type Observation struct {
	Kind         ObservationKind        `json:"kind"`
	Summary      string                 `json:"summary"`
	InspectorURL string                 `json:"inspector_url"`
	Extra        map[string]interface{} `json:"extra"`
}

// Client posts observations to the configured sink.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an observation client rooted at baseURL.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, client: client}
}

// SendObservation posts an observation about a package to the sink.
func (c *Client) SendObservation(ctx context.Context, name string, observation Observation) error {
	payload, err := json.Marshal(observation)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/report/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("package", name).Msg("Observation delivery failed")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("observation sink returned status %d for %s", resp.StatusCode, name)
	}
	return nil
}
