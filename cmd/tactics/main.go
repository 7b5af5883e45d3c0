// Package main runs the tactics rule engine over a stream of host events.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/clock"
	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/crittable"
	"github.com/cory-johannsen/tactics/internal/game/dice"
	"github.com/cory-johannsen/tactics/internal/game/fatigue"
	"github.com/cory-johannsen/tactics/internal/game/fumble"
	"github.com/cory-johannsen/tactics/internal/game/initiative"
	"github.com/cory-johannsen/tactics/internal/game/spellpoints"
	"github.com/cory-johannsen/tactics/internal/gameserver"
	"github.com/cory-johannsen/tactics/internal/observability"
	"github.com/cory-johannsen/tactics/internal/scripting"
	"github.com/cory-johannsen/tactics/internal/server"
	"github.com/cory-johannsen/tactics/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	eventsPath := flag.String("events", "-", "YAML event stream to process; - reads stdin")
	output := flag.String("output", "text", "notification sink: text (stdout) or log")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	roller := dice.NewRoller(dice.NewCryptoSource(), observability.Component(logger, "dice"))

	// Content
	registry, err := gameserver.LoadRegistry(cfg.Content.Entities)
	if err != nil {
		logger.Fatal("loading entities", zap.Error(err))
	}
	fumbleTable := fumble.DefaultTable()
	if cfg.Content.FumbleTable != "" {
		if fumbleTable, err = fumble.LoadFile(cfg.Content.FumbleTable); err != nil {
			logger.Fatal("loading fumble table", zap.Error(err))
		}
	}
	crits, err := crittable.LoadDirectory(cfg.Content.CriticalTables)
	if err != nil {
		logger.Fatal("loading critical hit tables", zap.Error(err))
	}
	phases, err := initiative.NewPhaseTable(cfg.Initiative.Bands)
	if err != nil {
		logger.Fatal("building initiative phases", zap.Error(err))
	}
	for _, ph := range phases.Phases() {
		logger.Debug("initiative phase", zap.String("code", ph.Code), zap.Int("min_modifier", ph.Min))
	}
	logger.Info("content loaded",
		zap.Int("entities", registry.Len()),
		zap.Int("critical_tables", crits.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)

	// Storage
	var (
		flags     combat.FlagStore = combat.NewMemoryFlagStore()
		initStore initiative.Store = initiative.NewMemoryStore()
	)
	if cfg.Storage.Backend == "postgres" {
		pool, err := postgres.NewPool(ctx, cfg.Database, observability.Component(logger, "postgres"))
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		flags = postgres.NewFlagRepository(pool.DB())
		initStore = postgres.NewInitiativeRepository(pool.DB())
	}

	// Engines
	combatLog := observability.Component(logger, "combat")
	var (
		notifier combat.Notifier
		post     scripting.PostFunc
	)
	switch *output {
	case "text":
		text := gameserver.NewTextNotifier(os.Stdout, crittable.NewResolver(crits, roller, observability.Component(logger, "crittable")), logger)
		notifier, post = text, text.PostScript
	case "log":
		notifier = combat.NewLogNotifier(observability.Component(logger, "notify"))
		post = func(title string, lines []string) {
			notifier.Post(ctx, combat.Message{Kind: gameserver.MessageScript, Title: title, Lines: lines})
		}
	default:
		logger.Fatal("unknown output", zap.String("output", *output))
	}
	confirmer := combat.NewConfirmer(combat.NewLockTable(), roller, notifier, combatLog)
	fumbles := fumble.NewDispatcher(fumbleTable, roller, observability.Component(logger, "fumble"))
	engine := combat.NewEngine(registry, roller, confirmer, fumbles, notifier, flags, cfg.Rules, combatLog)

	if cfg.Content.Scripts != "" {
		scripts := scripting.NewManager(roller, observability.Component(logger, "scripting"))
		if err := scripts.Load(cfg.Content.Scripts, cfg.Scripting.InstructionLimit); err != nil {
			logger.Fatal("loading house-rule scripts", zap.Error(err))
		}
		defer scripts.Close()
		scripts.SetPost(post)
		engine.SetHooks(scripting.NewHooks(scripts))
	}

	spells := spellpoints.NewLedger()
	tired := fatigue.NewTracker()
	registry.Seed(spells, tired)

	dispatcher := gameserver.NewDispatcher(gameserver.Components{
		Attacks:    engine,
		Initiative: initiative.NewResolver(phases, initStore, observability.Component(logger, "initiative")),
		Clock: clock.New(0, clock.Settings{
			TwelveSecondRounds: cfg.Rules.Enable12SecondRounds,
			AdvanceOnCombatEnd: cfg.Rules.Advance600EndCombat,
		}),
		Fatigue:  tired,
		Spells:   spells,
		Registry: registry,
		Roller:   roller,
		Notifier: notifier,
	}, cfg.Rules, observability.Component(logger, "dispatcher"))

	var src io.Reader = os.Stdin
	if *eventsPath != "-" {
		f, err := os.Open(*eventsPath)
		if err != nil {
			logger.Fatal("opening event stream", zap.Error(err))
		}
		src = f
	}
	runner := gameserver.NewRunner(src, dispatcher, observability.Component(logger, "events"))

	logger.Info("tactics ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("events", *eventsPath),
		zap.Duration("startup", time.Since(start)),
	)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("events", runner)
	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("event processing failed", zap.Error(err))
		os.Exit(1)
	}
}
