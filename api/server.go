package api

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/gofiber/contrib/fiberzerolog"
	"github.com/pkgshield/pkgshield/db"
	"github.com/pkgshield/pkgshield/pkg/jobcache"
	"github.com/pkgshield/pkgshield/pkg/lifecycle"
	"github.com/pkgshield/pkgshield/pkg/pypi"
	"github.com/pkgshield/pkgshield/pkg/reporter"
	"github.com/pkgshield/pkgshield/pkg/rules"
)

// StartAPI wires the catalogue, rule snapshot service, job cache and
// lifecycle service together and serves the HTTP API until interrupted.
func StartAPI() {
	apiLogger := log.With().Str("type", "api").Logger()

	apiLogger.Info().Msg("Initializing...")
	conn, err := db.Connect()
	if err != nil {
		apiLogger.Error().Err(err).Msg("Failed to connect to the database")
		os.Exit(1)
	}

	ruleService := rules.NewService(rules.Config{
		Token:     viper.GetString("rules.github_token"),
		RepoOwner: viper.GetString("rules.repo_owner"),
		RepoName:  viper.GetString("rules.repo_name"),
		Branch:    viper.GetString("rules.branch"),
	}, conn)
	if err := ruleService.Refresh(context.Background()); err != nil {
		apiLogger.Error().Err(err).Msg("Failed to fetch the initial rule snapshot")
		os.Exit(1)
	}

	jobTimeout := time.Duration(viper.GetInt("jobs.timeout")) * time.Second
	cache := jobcache.New(viper.GetInt("jobs.cache_size"), jobTimeout, conn)

	service := lifecycle.NewService(lifecycle.Options{
		Store:          conn,
		Cache:          cache,
		Rules:          ruleService,
		PyPI:           pypi.NewClient(viper.GetString("pypi.base_url"), nil),
		Reporter:       reporter.NewClient(viper.GetString("reporter.url"), nil),
		JobTimeout:     jobTimeout,
		ScoreThreshold: viper.GetInt64("scans.score_threshold"),
		ServerCommit:   viper.GetString("server.commit"),
	})

	scheduler := cron.New()
	if cache.Enabled() {
		// Refills happen on demand in the dispatch path, the scheduler
		// only bounds how long buffered verdicts stay in memory.
		_, err := scheduler.AddFunc(viper.GetString("jobs.maintenance_schedule"), func() {
			if err := cache.PersistAll(time.Now().UTC()); err != nil {
				log.Error().Err(err).Msg("Scheduled verdict flush failed")
			}
		})
		if err != nil {
			apiLogger.Error().Err(err).Msg("Invalid job maintenance schedule")
			os.Exit(1)
		}
	}
	if schedule := viper.GetString("rules.refresh_schedule"); schedule != "" {
		_, err := scheduler.AddFunc(schedule, func() {
			if err := ruleService.Refresh(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Scheduled rule refresh failed")
			}
		})
		if err != nil {
			apiLogger.Error().Err(err).Msg("Invalid rule refresh schedule")
			os.Exit(1)
		}
	}
	scheduler.Start()

	apiLogger.Info().Msg("Initialized everything. Starting the API...")

	app := fiber.New(fiber.Config{
		ServerHeader: "PkgShield",
		AppName:      "PkgShield API",
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(viper.GetStringSlice("api.cors.origins"), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Use(fiberzerolog.New(fiberzerolog.Config{
		Logger: &apiLogger,
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("service", service)
		return c.Next()
	})

	// The only unauthenticated endpoint, keep it rate limited
	app.Get("/", limiter.New(limiter.Config{
		Max:               20,
		Expiration:        30 * time.Second,
		LimiterMiddleware: limiter.SlidingWindow{},
	}), RootHandler)

	if viper.GetBool("api.metrics.enabled") {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	app.Post("/jobs", JWTProtected(), PostJobsHandler)
	app.Post("/job", JWTProtected(), PostJobHandler)
	app.Get("/package", JWTProtected(), LookupPackagesHandler)
	app.Post("/package", JWTProtected(), QueuePackageHandler)
	app.Put("/package", JWTProtected(), SubmitResultsHandler)
	app.Post("/batch/package", JWTProtected(), BatchQueuePackageHandler)
	app.Post("/report", JWTProtected(), ReportPackageHandler)
	app.Get("/rules", JWTProtected(), GetRulesHandler)
	app.Post("/update-rules/", JWTProtected(), UpdateRulesHandler)
	app.Get("/scans", JWTProtected(), GetScansHandler)
	app.Get("/stats", JWTProtected(), GetStatsHandler)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		apiLogger.Info().Msg("Shutting down...")
		scheduler.Stop()
		if err := service.Shutdown(); err != nil {
			apiLogger.Error().Err(err).Msg("Failed to flush buffered verdicts")
		}
		if err := app.Shutdown(); err != nil {
			apiLogger.Error().Err(err).Msg("Error shutting down server")
		}
	}()

	listenAddress := fmt.Sprintf("%v:%v", viper.Get("api.listen.host"), viper.Get("api.listen.port"))
	if err := app.Listen(listenAddress); err != nil {
		apiLogger.Warn().Err(err).Msg("Error starting server")
	}

	if err := conn.Close(); err != nil {
		apiLogger.Error().Err(err).Msg("Error closing database connection")
	}
}
