package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/opsboard/internal/config"
	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/engine"
	"github.com/vovakirdan/opsboard/internal/filter"
	"github.com/vovakirdan/opsboard/internal/ingest"
	applog "github.com/vovakirdan/opsboard/internal/log"
	"github.com/vovakirdan/opsboard/internal/metrics"
	"github.com/vovakirdan/opsboard/internal/service/communication"
	"github.com/vovakirdan/opsboard/internal/store"
)

// App wires together the engine, the backend service and the ingestion
// channels.
type App struct {
	cfg       config.Config
	engine    *engine.Engine
	comms     *communication.Service
	simulator *ingest.Simulator
	feed      *ingest.Feed
	log       *zerolog.Logger

	subs []core.SubscriptionHandle
}

// New constructs the application with provided configuration and seeds the
// demo venue.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	eng := engine.New(engine.Config{
		TotalCapacity: cfg.TotalCapacity,
		Gates:         cfg.Gates,
		HistoryLimit:  cfg.HistoryLimit,
		MessageLimit:  cfg.MessageLimit,
		IncidentLimit: cfg.IncidentLimit,
	}, applog.Component(logger, "registry"))

	if err := eng.Seed(time.Now()); err != nil {
		return nil, fmt.Errorf("seed venue: %w", err)
	}

	seeded := eng.Communication.Snapshot()
	backend := communication.NewMockBackend(communication.MockConfig{
		Latency:      cfg.BackendLatency,
		PushInterval: cfg.TickInterval,
		PushChance:   cfg.MessageChance,
		Departments:  seeded.Departments,
		Messages:     seeded.Messages,
	}, ingest.NewSeededSource(cfg.Seed+1))

	simulator := ingest.NewSimulator(ingest.SimulatorConfig{
		AttendanceStep: cfg.AttendanceStep,
		MessageChance:  cfg.MessageChance,
		IncidentChance: cfg.IncidentChance,
	}, ingest.Targets{
		Attendance:    eng.Attendance,
		Communication: eng.Communication,
		Security:      eng.Security,
	}, ingest.NewSeededSource(cfg.Seed), applog.Component(logger, "simulator"))

	logger.Info().
		Int("total_capacity", cfg.TotalCapacity).
		Strs("gates", cfg.Gates).
		Uint64("seed", cfg.Seed).
		Msg("venue initialized")

	return &App{
		cfg:       *cfg,
		engine:    eng,
		comms:     communication.New(backend, eng.Communication, 0, applog.Component(logger, "communication")),
		simulator: simulator,
		feed:      ingest.NewFeed(backend, eng.Communication, applog.Component(logger, "feed")),
		log:       logger,
	}, nil
}

// Engine exposes the stores and the subscription surface.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Communication exposes the backend-backed message service.
func (a *App) Communication() *communication.Service {
	return a.comms
}

// Simulate runs ticks simulator steps synchronously and returns the
// resulting summary. The channels must not be running.
func (a *App) Simulate(ticks int) metrics.Summary {
	for range ticks {
		a.simulator.Step()
	}
	return a.engine.Summary()
}

// Run hydrates from the backend, starts the ingestion channels and blocks
// until context cancellation or a fatal error.
func (a *App) Run(ctx context.Context) error {
	hydrateCtx, cancel := context.WithTimeout(ctx, a.cfg.HydrateTimeout)
	if err := a.comms.Hydrate(hydrateCtx); err != nil {
		// the seeded state stays in place
		a.log.Warn().Err(err).Msg("starting without backend data")
	}
	cancel()

	if err := a.watch(); err != nil {
		a.cleanup()
		return err
	}

	simHandle, err := a.simulator.Start(a.cfg.TickInterval)
	if err != nil {
		a.cleanup()
		return fmt.Errorf("start simulator: %w", err)
	}
	defer a.simulator.Stop(simHandle)

	feedHandle, err := a.feed.Start(a.cfg.FeedInterval)
	if err != nil {
		a.cleanup()
		return fmt.Errorf("start feed: %w", err)
	}
	defer a.feed.Stop(feedHandle)

	var summaries <-chan time.Time
	if a.cfg.SummaryInterval > 0 {
		ticker := time.NewTicker(a.cfg.SummaryInterval)
		defer ticker.Stop()
		summaries = ticker.C
	}

	for {
		select {
		case <-summaries:
			a.logSummary(a.engine.Summary())
		case <-ctx.Done():
			a.log.Info().Msg("shutting down ingestion")
			a.feed.Stop(feedHandle)
			a.simulator.Stop(simHandle)
			a.logSummary(a.engine.Summary())
			a.cleanup()
			return nil
		}
	}
}

// watch subscribes the console observers: a debug line per snapshot and a
// warning per new priority message.
func (a *App) watch() error {
	for _, d := range core.Domains {
		h, err := a.engine.Subscribe(d, func(s core.Snapshot) error {
			head := s.Head()
			a.log.Debug().
				Str("domain", string(head.Domain)).
				Uint64("revision", head.Revision).
				Time("last_updated", head.LastUpdated).
				Msg("domain updated")
			return nil
		}, nil)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", d, err)
		}
		a.subs = append(a.subs, h)
	}

	h, err := a.engine.Subscribe(core.DomainCommunication, func(s core.Snapshot) error {
		snap := s.(store.CommunicationSnapshot)
		msg, _ := snap.Latest()
		a.log.Warn().
			Str("sender", msg.Sender).
			Str("department", snap.ResolveDepartment(msg.DepartmentID).Name).
			Str("content", msg.Content).
			Msg("priority message")
		return nil
	}, filter.LatestMatchesSince(filter.ByTab(filter.TabPriority), a.engine.Communication.Snapshot().Arrivals))
	if err != nil {
		return fmt.Errorf("subscribe priority feed: %w", err)
	}
	a.subs = append(a.subs, h)

	a.engine.OnSubscriberError(func(err *core.SubscriberCallbackError) {
		a.log.Error().Err(err).Uint64("subscription_id", err.SubscriptionID).Msg("observer failed")
	})
	return nil
}

func (a *App) logSummary(s metrics.Summary) {
	a.log.Info().
		Int("attendance", s.Attendance).
		Int("occupancy_pct", s.OccupancyPct).
		Bool("occupancy_warning", s.OccupancyWarning).
		Int("active_alerts", s.ActiveAlerts).
		Int("parking_pct", s.ParkingPct).
		Int64("sales_cents", s.SalesCents).
		Int("messages", s.Messages).
		Msg("dashboard summary")
}

// cleanup drops the console observers.
func (a *App) cleanup() {
	for _, h := range a.subs {
		a.engine.Unsubscribe(h)
	}
	a.subs = nil
}
