// Package lifecycle implements the package scanning workflow on top of
// the scan catalogue: queueing releases, dispatching jobs to scanner
// clients, ingesting their verdicts and reporting malicious packages
// upstream.
package lifecycle

import (
	"time"

	"github.com/pkgshield/pkgshield/db"
	"github.com/pkgshield/pkgshield/pkg/jobcache"
	"github.com/pkgshield/pkgshield/pkg/pypi"
	"github.com/pkgshield/pkgshield/pkg/reporter"
	"github.com/pkgshield/pkgshield/pkg/rules"
)

// Service wires the scan catalogue, the job cache and the external
// clients into one workflow. All state lives in its collaborators.
type Service struct {
	store    *db.DatabaseConnection
	cache    *jobcache.Cache
	rules    *rules.Service
	pypi     *pypi.Client
	reporter *reporter.Client

	jobTimeout     time.Duration
	scoreThreshold int64
	serverCommit   string
}

// Options collects the collaborators and tunables for a Service.
type Options struct {
	Store    *db.DatabaseConnection
	Cache    *jobcache.Cache
	Rules    *rules.Service
	PyPI     *pypi.Client
	Reporter *reporter.Client

	// JobTimeout is how long a scanner may hold a lease before the
	// job is handed to somebody else.
	JobTimeout time.Duration

	// ScoreThreshold is the minimum score at which a finished scan
	// counts as malicious.
	ScoreThreshold int64

	// ServerCommit identifies the running build in metadata responses.
	ServerCommit string
}

func NewService(opts Options) *Service {
	return &Service{
		store:          opts.Store,
		cache:          opts.Cache,
		rules:          opts.Rules,
		pypi:           opts.PyPI,
		reporter:       opts.Reporter,
		jobTimeout:     opts.JobTimeout,
		scoreThreshold: opts.ScoreThreshold,
		serverCommit:   opts.ServerCommit,
	}
}

// Rules exposes the rule snapshot service for the rule endpoints.
func (s *Service) Rules() *rules.Service {
	return s.rules
}

// Metadata describes the running server and the rule snapshot it
// serves to scanner clients.
type Metadata struct {
	ServerCommit string `json:"server_commit"`
	RulesCommit  string `json:"rules_commit"`
}

func (s *Service) Metadata() Metadata {
	return Metadata{
		ServerCommit: s.serverCommit,
		RulesCommit:  s.rules.Current().Commit,
	}
}

// Shutdown flushes any verdicts still buffered in the job cache.
func (s *Service) Shutdown() error {
	if !s.cache.Enabled() {
		return nil
	}
	return s.cache.PersistAll(time.Now().UTC())
}
