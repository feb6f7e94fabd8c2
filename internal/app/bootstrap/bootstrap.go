package bootstrap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	stakingservice "delphi/contexts/finance-core/staking-service"
	stakingmemory "delphi/contexts/finance-core/staking-service/adapters/memory"
	stakingworkers "delphi/contexts/finance-core/staking-service/application/workers"
	treasuryservice "delphi/contexts/finance-core/treasury-service"
	treasurymemory "delphi/contexts/finance-core/treasury-service/adapters/memory"
	treasurypostgres "delphi/contexts/finance-core/treasury-service/adapters/postgres"
	treasuryworkers "delphi/contexts/finance-core/treasury-service/application/workers"
	treasuryports "delphi/contexts/finance-core/treasury-service/ports"
	governanceservice "delphi/contexts/internal-ops/governance-service"
	governancememory "delphi/contexts/internal-ops/governance-service/adapters/memory"
	governancecommands "delphi/contexts/internal-ops/governance-service/application/commands"
	governanceworkers "delphi/contexts/internal-ops/governance-service/application/workers"
	votingengine "delphi/contexts/market-core/voting-engine"
	marketmemory "delphi/contexts/market-core/voting-engine/adapters/memory"
	marketpostgres "delphi/contexts/market-core/voting-engine/adapters/postgres"
	marketworkers "delphi/contexts/market-core/voting-engine/application/workers"
	marketports "delphi/contexts/market-core/voting-engine/ports"
	"delphi/internal/platform/config"
	"delphi/internal/platform/db"
	"delphi/internal/platform/httpserver"
	"delphi/internal/platform/messaging"
	"delphi/internal/shared/guard"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server  *httpserver.Server
	closeDB func() error
	logger  *slog.Logger
}

type WorkerApp struct {
	cfg             config.Config
	marketRelay     marketworkers.OutboxRelay
	treasuryRelay   treasuryworkers.OutboxRelay
	stakingRelay    stakingworkers.OutboxRelay
	governanceRelay governanceworkers.OutboxRelay
	sweeper         governanceworkers.ExpirySweeper
	pollInterval    time.Duration
	closeDB         func() error
	logger          *slog.Logger
}

// modules bundles the four wired contexts plus the outbox read side each
// worker relay drains.
type modules struct {
	markets    votingengine.Module
	treasury   treasuryservice.Module
	staking    stakingservice.Module
	governance governanceservice.Module

	marketOutbox     marketports.OutboxRepository
	treasuryOutbox   treasuryports.OutboxRepository
	stakingOutbox    *stakingmemory.Store
	governanceOutbox *governancememory.Store

	closeDB func() error
}

func buildModules(cfg config.Config, logger *slog.Logger) (*modules, error) {
	var gormDB *gorm.DB
	closeDB := func() error { return nil }
	switch {
	case strings.TrimSpace(cfg.PostgresDSN) != "":
		pg, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		gormDB = pg.DB
		closeDB = pg.Close
	case strings.TrimSpace(cfg.SQLitePath) != "":
		sq, err := db.ConnectSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		gormDB = sq.DB
		closeDB = sq.Close
	}

	// Governance state and the pause flag stay in memory; the council is
	// small and re-seeded from config on start.
	governanceStore := governancememory.NewStore()
	pause := &governancememory.PauseFlag{}
	signers := councilDirectory{council: governanceStore}

	treasuryDeps := treasuryservice.Dependencies{
		Guard:  guard.New(),
		Clock:  treasurymemory.SystemClock{},
		IDGen:  treasurymemory.UUIDGenerator{},
		Logger: logger,
	}
	var treasuryOutbox treasuryports.OutboxRepository
	if gormDB != nil {
		repo := treasurypostgres.NewRepository(gormDB, logger)
		treasuryDeps.Ledger = repo
		treasuryDeps.Outbox = repo
		treasuryOutbox = repo
	} else {
		store := treasurymemory.NewStore()
		treasuryDeps.Ledger = store
		treasuryDeps.Outbox = store
		treasuryOutbox = store
	}
	treasuryModule := treasuryservice.NewModule(treasuryDeps)

	marketDeps := votingengine.Dependencies{
		Treasury: marketTreasuryGateway{treasury: treasuryModule.Treasury},
		Status:   pause,
		Signers:  signers,
		Guard:    guard.New(),
		Clock:    marketmemory.SystemClock{},
		IDGen:    marketmemory.UUIDGenerator{},
		Logger:   logger,
	}
	var marketOutbox marketports.OutboxRepository
	if gormDB != nil {
		repo := marketpostgres.NewRepository(gormDB, logger)
		marketDeps.Events = repo
		marketDeps.Outbox = repo
		marketOutbox = repo
	} else {
		store := marketmemory.NewStore()
		marketDeps.Events = store
		marketDeps.Outbox = store
		marketOutbox = store
	}
	marketModule := votingengine.NewModule(marketDeps)

	stakingStore := stakingmemory.NewStore()
	stakingModule := stakingservice.NewModule(stakingservice.Dependencies{
		Pools:    stakingStore,
		Treasury: stakingTreasuryGateway{treasury: treasuryModule.Treasury},
		Status:   pause,
		Signers:  signers,
		Policy:   &stakingmemory.EmergencyFlag{},
		Outbox:   stakingStore,
		Guard:    guard.New(),
		Clock:    stakingmemory.SystemClock{},
		IDGen:    stakingmemory.UUIDGenerator{},
		Logger:   logger,
	})

	governanceModule := governanceservice.NewModule(governanceservice.Dependencies{
		Council:    governanceStore,
		Operations: governanceStore,
		Resolver:   marketResolver{markets: marketModule.Markets},
		Treasury:   treasuryAdmin{treasury: treasuryModule.Treasury},
		Staking:    stakingAdmin{staking: stakingModule.Staking},
		Pause:      pause,
		Outbox:     governanceStore,
		Guard:      guard.New(),
		Clock:      governancememory.SystemClock{},
		IDGen:      governancememory.UUIDGenerator{},
		Logger:     logger,
	})

	if len(cfg.CouncilSigners) > 0 && cfg.CouncilThreshold > 0 {
		_, err := governanceModule.Governance.Initialize(context.Background(), governancecommands.InitializeCommand{
			Admin:     cfg.CouncilSigners[0],
			Signers:   cfg.CouncilSigners,
			Threshold: cfg.CouncilThreshold,
		})
		if err != nil {
			_ = closeDB()
			return nil, err
		}
	}

	return &modules{
		markets:          marketModule,
		treasury:         treasuryModule,
		staking:          stakingModule,
		governance:       governanceModule,
		marketOutbox:     marketOutbox,
		treasuryOutbox:   treasuryOutbox,
		stakingOutbox:    stakingStore,
		governanceOutbox: governanceStore,
		closeDB:          closeDB,
	}, nil
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	mods, err := buildModules(cfg, logger)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(
		mods.markets,
		mods.treasury,
		mods.staking,
		mods.governance,
		logger,
		normalizeAddr(cfg.HTTPPort),
	)
	return &APIApp{
		server:  server,
		closeDB: mods.closeDB,
		logger:  logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	mods, err := buildModules(cfg, logger)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = mods.closeDB()
		return nil, err
	}

	return &WorkerApp{
		cfg: cfg,
		marketRelay: marketworkers.OutboxRelay{
			Outbox:    mods.marketOutbox,
			Publisher: marketPublisher{bus: kafka},
			Clock:     marketmemory.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		treasuryRelay: treasuryworkers.OutboxRelay{
			Outbox:    mods.treasuryOutbox,
			Publisher: treasuryPublisher{bus: kafka},
			Clock:     treasurymemory.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		stakingRelay: stakingworkers.OutboxRelay{
			Outbox:    mods.stakingOutbox,
			Publisher: stakingPublisher{bus: kafka},
			Clock:     stakingmemory.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		governanceRelay: governanceworkers.OutboxRelay{
			Outbox:    mods.governanceOutbox,
			Publisher: governancePublisher{bus: kafka},
			Clock:     governancememory.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		sweeper: governanceworkers.ExpirySweeper{
			Governance: mods.governance.Governance,
			Logger:     logger,
		},
		pollInterval: 2 * time.Second,
		closeDB:      mods.closeDB,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	return a.closeDB()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.cfg.EnableGovernanceExpirySweep {
			if err := w.sweeper.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.cfg.EnableMarketOutboxRelay {
			if err := w.marketRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.cfg.EnableTreasuryOutboxRelay {
			if err := w.treasuryRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.cfg.EnableStakingOutboxRelay {
			if err := w.stakingRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.cfg.EnableGovernanceOutboxRelay {
			if err := w.governanceRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	return w.closeDB()
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
