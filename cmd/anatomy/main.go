package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rmdgo/anatomy/internal/body"
	"github.com/rmdgo/anatomy/internal/config"
	"github.com/rmdgo/anatomy/internal/core/ecs"
	coresys "github.com/rmdgo/anatomy/internal/core/system"
	"github.com/rmdgo/anatomy/internal/data"
	"github.com/rmdgo/anatomy/internal/persist"
	"github.com/rmdgo/anatomy/internal/scripting"
	"github.com/rmdgo/anatomy/internal/system"
	"github.com/rmdgo/anatomy/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

// ── Simulation ────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/anatomy.toml"
	if p := os.Getenv("ANATOMY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Load the body definition
	printSection("Definition")
	def, err := data.LoadBodyDefinition(cfg.Body.Definition)
	if err != nil {
		return fmt.Errorf("body definition: %w", err)
	}
	parts, organs := def.CountParts()
	printStat("Tissues", len(def.Tissues))
	printStat("Body parts", parts)
	printStat("Organs", organs)
	fmt.Println()

	// 4. Open the snapshot database
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		bodyRepo    *persist.BodyRepo
		journalRepo *persist.JournalRepo
	)
	if cfg.Database.Driver != "" {
		printSection("Database")
		db, err := persist.Open(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		bodyRepo = persist.NewBodyRepo(db)
		journalRepo = persist.NewJournalRepo(db)
		printOK(fmt.Sprintf("%s ready, migrations applied", db.Dialect))
		fmt.Println()
	}

	// 5. Lua rules
	luaEngine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()

	// 6. Creatures
	printSection("Creatures")
	deps := system.NewDeps(log)
	metrics := telemetry.New()
	roster := system.NewRoster(deps)

	restored := 0
	if cfg.Simulation.Resume {
		restored, err = system.Resume(ctx, deps, bodyRepo)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		printStat("Restored", restored)
	}
	if restored == 0 {
		for i := 0; i < cfg.Simulation.Creatures; i++ {
			if _, err := deps.Spawn(def, 0); err != nil {
				return err
			}
		}
		printStat("Spawned", cfg.Simulation.Creatures)
	}
	fmt.Println()

	// 7. Systems
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(deps.Bus))
	runner.Register(system.NewDismemberSystem(deps, luaEngine, rand.New(rand.NewSource(seed)), cfg.Simulation.HitChance))
	runner.Register(system.NewMetricsSystem(deps, metrics))
	var persistSys *system.PersistenceSystem
	if bodyRepo != nil {
		persistSys = system.NewPersistenceSystem(deps, bodyRepo, journalRepo, metrics, cfg.Simulation.SaveEvery)
		runner.Register(persistSys)
	}
	runner.Register(system.NewCleanupSystem(deps))

	// 8. Metrics endpoint
	if cfg.Metrics.BindAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/bodies", roster)
		srv := &http.Server{Addr: cfg.Metrics.BindAddress, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
		printOK("metrics on " + cfg.Metrics.BindAddress)
	}

	// 9. Run the tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	log.Info("simulation started",
		zap.Int64("seed", seed),
		zap.Int("ticks", cfg.Simulation.Ticks),
		zap.Duration("tick_rate", cfg.Simulation.TickRate),
	)

loop:
	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
			if deps.Creatures.Len() == 0 {
				log.Info("every body destroyed", zap.Int64("tick", runner.Ticks()))
				break loop
			}
			if cfg.Simulation.Ticks > 0 && runner.Ticks() >= int64(cfg.Simulation.Ticks) {
				break loop
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			break loop
		}
	}

	// 10. Deliver the last events and save everything
	runner.TickPhase(coresys.PhasePreUpdate, 0)
	if persistSys != nil {
		persistSys.SaveAll()
	}

	fmt.Println()
	if err := writeReport(os.Stdout, deps, cfg.Simulation.Inspect); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if cfg.Body.DotOutput != "" {
		if err := writeDOT(cfg.Body.DotOutput, deps); err != nil {
			return fmt.Errorf("dot output: %w", err)
		}
		printOK("body map written to " + cfg.Body.DotOutput)
	}
	return nil
}

func writeDOT(path string, deps *system.Deps) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	var werr error
	deps.Bodies.Each(func(_ ecs.EntityID, g *body.Guarded) {
		if werr != nil {
			return
		}
		g.With(func(b *body.Body) { werr = b.WriteDOT(f) })
	})
	if err := f.Close(); werr == nil {
		werr = err
	}
	return werr
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
