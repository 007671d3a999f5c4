package rules

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// TestToken short-circuits Fetch so test environments never contact the
// GitHub API.
const TestToken = "test"

const ruleExtension = ".yara"

// Snapshot is an immutable view of the rule bundle at one commit.
type Snapshot struct {
	Commit string            `json:"hash"`
	Rules  map[string]string `json:"rules"`
}

// RuleStore persists the names contained in a refreshed snapshot.
type RuleStore interface {
	UpsertRuleNames(names []string) error
}

// Config describes the upstream rule repository.
type Config struct {
	Token     string
	RepoOwner string
	RepoName  string
	Branch    string
}

// Service materializes rule snapshots from the upstream repository and
// hands out the active one without blocking on network I/O.
type Service struct {
	cfg     Config
	client  *github.Client
	httpc   *http.Client
	store   RuleStore
	current atomic.Pointer[Snapshot]
}

// NewService creates a snapshot service. The store may be nil when rule
// persistence is not wanted, for example in the CLI.
func NewService(cfg Config, store RuleStore) *Service {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)

	svc := &Service{
		cfg:    cfg,
		client: github.NewClient(tc),
		httpc:  &http.Client{Timeout: 60 * time.Second},
		store:  store,
	}
	svc.current.Store(&Snapshot{Rules: map[string]string{}})
	return svc
}

// Current returns the most recently materialized snapshot. Never nil.
func (s *Service) Current() *Snapshot {
	return s.current.Load()
}

// Fetch pulls the head commit of the configured repository and a zip
// archive of its contents, and maps every rule file stem to its body.
func (s *Service) Fetch(ctx context.Context) (*Snapshot, error) {
	if s.cfg.Token == TestToken {
		return &Snapshot{Commit: "test", Rules: map[string]string{}}, nil
	}

	commit, _, err := s.client.Repositories.GetCommitSHA1(ctx, s.cfg.RepoOwner, s.cfg.RepoName, s.cfg.Branch, "")
	if err != nil {
		return nil, fmt.Errorf("fetching head commit of %s/%s: %w", s.cfg.RepoOwner, s.cfg.RepoName, err)
	}

	archiveURL, _, err := s.client.Repositories.GetArchiveLink(
		ctx,
		s.cfg.RepoOwner,
		s.cfg.RepoName,
		github.Zipball,
		&github.RepositoryContentGetOptions{Ref: s.cfg.Branch},
		3,
	)
	if err != nil {
		return nil, fmt.Errorf("resolving archive link of %s/%s: %w", s.cfg.RepoOwner, s.cfg.RepoName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL.String(), nil)
	if err != nil {
		return nil, err
	}
	res, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading rule archive: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading rule archive: unexpected status %d", res.StatusCode)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading rule archive: %w", err)
	}

	ruleMap, err := extractRules(data)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Commit: commit, Rules: ruleMap}, nil
}

// Refresh fetches a new snapshot, publishes it and makes sure every rule
// name it contains has a row in the catalogue. On fetch failure the
// previous snapshot stays active.
func (s *Service) Refresh(ctx context.Context) error {
	snapshot, err := s.Fetch(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Rule refresh failed, keeping previous snapshot")
		return err
	}
	s.current.Store(snapshot)

	if s.store != nil {
		names := make([]string, 0, len(snapshot.Rules))
		for name := range snapshot.Rules {
			names = append(names, name)
		}
		if err := s.store.UpsertRuleNames(names); err != nil {
			return err
		}
	}

	log.Info().Str("commit", snapshot.Commit).Int("rules", len(snapshot.Rules)).Msg("Rule snapshot refreshed")
	return nil
}

// extractRules maps the file stem of every rule entry in the zip archive
// to its decoded contents.
func extractRules(data []byte) (map[string]string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening rule archive: %w", err)
	}

	ruleMap := make(map[string]string)
	for _, file := range reader.File {
		if !strings.HasSuffix(file.Name, ruleExtension) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("opening rule %s: %w", file.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading rule %s: %w", file.Name, err)
		}
		stem := strings.TrimSuffix(path.Base(file.Name), ruleExtension)
		ruleMap[stem] = string(body)
	}
	return ruleMap, nil
}
