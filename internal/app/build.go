// Package app wires configuration into a running service graph.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ent0n29/switchboard/internal/analytics"
	"github.com/ent0n29/switchboard/internal/config"
	"github.com/ent0n29/switchboard/internal/database"
	"github.com/ent0n29/switchboard/internal/dispatch"
	"github.com/ent0n29/switchboard/internal/escalation"
	"github.com/ent0n29/switchboard/internal/history"
	"github.com/ent0n29/switchboard/internal/httpapi"
	"github.com/ent0n29/switchboard/internal/logging"
	"github.com/ent0n29/switchboard/internal/maintenance"
	"github.com/ent0n29/switchboard/internal/memory"
	"github.com/ent0n29/switchboard/internal/notify"
	"github.com/ent0n29/switchboard/internal/observability"
	"github.com/ent0n29/switchboard/internal/oracle"
	"github.com/ent0n29/switchboard/internal/routing"
	"github.com/ent0n29/switchboard/internal/signals"
	"github.com/ent0n29/switchboard/internal/tickets"
)

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Dispatch  *dispatch.Service
	History   *history.Store
	Tickets   *tickets.Manager
	Oracle    oracle.Oracle
	Notifier  *notify.Worker
	Retention *maintenance.RetentionJob
	Metrics   *observability.Metrics
	Status    map[string]string

	// Cleanup should be called on shutdown, after background workers have stopped.
	Cleanup func() error
}

// Catalog builds the route catalog from configuration, falling back to the built-in routes.
func Catalog(cfg config.Config) *routing.Catalog {
	routes := routing.DefaultRoutes()
	if len(cfg.Routes) > 0 {
		routes = make([]routing.Route, 0, len(cfg.Routes))
		for _, r := range cfg.Routes {
			routes = append(routes, routing.Route{Name: r.Name, Description: r.Description, Suggestions: r.Suggestions})
		}
	}
	return routing.NewCatalog(routes, cfg.DefaultRoute)
}

// Aggregator builds the signal aggregator from configuration.
func Aggregator(cfg config.Config) *signals.Aggregator {
	return signals.New(signals.Config{
		ShortTextWeight:      cfg.Signals.ShortTextWeight,
		LongTextWeight:       cfg.Signals.LongTextWeight,
		NegativeThreshold:    cfg.Signals.NegativeThreshold,
		UrgencyKeywordWeight: cfg.Signals.UrgencyKeywordWeight,
		UrgencyKeywords:      cfg.Signals.UrgencyKeywords,
		FrustrationKeywords:  cfg.Signals.FrustrationKeywords,
	})
}

// OpenDatabase returns nil when neither DATABASE_URL nor SQLITE_PATH is set.
func OpenDatabase(ctx context.Context, cfg config.Config, logger *slog.Logger) (*database.DB, error) {
	switch {
	case cfg.DatabaseURL != "":
		return database.OpenPostgres(ctx, cfg.DatabaseURL, logger)
	case cfg.SQLitePath != "":
		return database.OpenSQLite(cfg.SQLitePath)
	default:
		return nil, nil
	}
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	logger := logging.New("app")
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	db, err := OpenDatabase(ctx, cfg, logging.New("database"))
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	storeMode := "in-memory"
	var (
		ticketStore tickets.Store = tickets.NewInMemoryStore()
		turnStore   memory.Store  = memory.NewInMemoryStore()
		reports     *analytics.Service
	)
	if db != nil {
		storeMode = string(db.Dialect)
		ticketStore = tickets.NewStore(db)
		turnStore = memory.NewStore(db)
		reports = analytics.New(db.SQL, db.Dialect)
	}

	catalog := Catalog(cfg)
	orc, err := oracle.NewOracle(oracle.Config{
		Mode:            cfg.OracleMode,
		HTTPURL:         cfg.OracleHTTPURL,
		HTTPTimeout:     cfg.OracleTimeout,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		Routes:          catalog.Routes(),
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("oracle init failed: %w", err)
	}
	logger.Info("oracle ready", "oracle", orc.Name())

	hist := history.NewStore(cfg.SessionMaxTurns, cfg.SessionIdleTimeout)
	hist.SetExpireHook(func(string) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(hist.ActiveCount()))
	})

	ticketManager := tickets.NewManager(ticketStore, logging.New("tickets"))
	ticketManager.SetUpdateHook(func(tickets.Ticket) {
		metrics.TicketEvents.WithLabelValues("updated").Inc()
	})
	ticketManager.SetCreateHook(func(tickets.Ticket) {
		metrics.TicketEvents.WithLabelValues("created").Inc()
	})

	notifier := notify.NewWorker(
		notify.New(cfg.SlackBotToken, cfg.SlackEscalationChannel, logging.New("notify")),
		logging.New("notify"),
		128,
	)
	notifier.SetResultHook(func(err error) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.NotifyResults.WithLabelValues(result).Inc()
	})

	recorder := memory.NewRecorder(turnStore, logging.New("memory"))

	svc, err := dispatch.New(dispatch.Deps{
		History:     hist,
		Signals:     Aggregator(cfg),
		Policy:      escalation.NewPolicy(cfg.EscalationMaxTurns),
		Resolver:    routing.NewResolver(catalog, logging.New("routing")),
		Oracle:      orc,
		Tickets:     ticketManager,
		Recorder:    recorder,
		Escalations: notifier,
		Metrics:     metrics,
		Logger:      logging.New("dispatch"),
	}, dispatch.Options{
		ContextTurns:     cfg.ContextTurns,
		OracleTimeout:    cfg.OracleTimeout,
		MaxMessageLength: cfg.MaxMessageLength,
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	var retention *maintenance.RetentionJob
	if cfg.TurnRetentionDays > 0 {
		retention, err = maintenance.NewRetentionJob(turnStore, cfg.RetentionSchedule, cfg.TurnRetentionDays, logging.New("retention"))
		if err != nil {
			if db != nil {
				_ = db.Close()
			}
			return nil, err
		}
	}

	status := map[string]string{
		"oracle_mode":       orc.Name(),
		"ticket_store_mode": storeMode,
		"turn_store_mode":   storeMode,
	}

	api := httpapi.New(cfg, httpapi.Deps{
		Dispatch:  svc,
		History:   hist,
		Tickets:   ticketManager,
		Analytics: reports,
		Metrics:   metrics,
		Logger:    logging.New("httpapi"),
		Status:    status,
		Ready: func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return db.Ping(ctx)
		},
	})

	cleanup := func() error {
		recorder.Wait()
		var errs []error
		if err := ticketManager.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := turnStore.Close(); err != nil {
			errs = append(errs, err)
		}
		if db != nil {
			if err := db.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Dispatch:  svc,
		History:   hist,
		Tickets:   ticketManager,
		Oracle:    orc,
		Notifier:  notifier,
		Retention: retention,
		Metrics:   metrics,
		Status:    status,
		Cleanup:   cleanup,
	}, nil
}
