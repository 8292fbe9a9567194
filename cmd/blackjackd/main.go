package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjackd/internal/auth"
	"github.com/lox/blackjackd/internal/reaper"
	"github.com/lox/blackjackd/internal/server"
	"github.com/lox/blackjackd/internal/stats"
	"github.com/lox/blackjackd/internal/store"
	"github.com/lox/blackjackd/internal/supervisor"
	"github.com/lox/blackjackd/internal/validate"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Config  string           `kong:"default='blackjackd.hcl',help='Path to HCL configuration file'"`
	Addr    string           `kong:"help='Listen address, overrides configuration'"`
	Debug   bool             `kong:"help='Enable debug logging'"`
	Seed    *int64           `kong:"help='Deterministic shuffle seed (optional)'"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjackd"),
		kong.Description("Multiplayer blackjack server with transition auditing"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := cli.Run()
	ctx.FatalIfErrorf(err)
}

func (c *CLI) Run() error {
	config, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	logger := setupLogger(config, c.Debug)

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("Using deterministic seed", "seed", seed)
	}

	addr := config.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	incidents, err := store.OpenIncidentLog(config.Server.IncidentDB)
	if err != nil {
		return err
	}
	defer incidents.Close()

	games := store.NewMemoryGames()
	tables := store.NewMemoryTables()
	clock := quartz.NewReal()

	ws := server.NewServer(addr, logger)
	service := server.NewGameService(ws, games, tables, config, clock, logger, seed)
	ws.SetGameService(service)

	if config.Server.AuthURL != "" {
		logger.Info("Token auth enabled", "url", config.Server.AuthURL)
		ws.SetAuthValidator(auth.NewHTTPValidator(config.Server.AuthURL, config.Server.AuthSecret))
	}

	// Watchers attach before the first table exists, so every write is
	// observed from the start.
	validator := validate.NewValidator(games, incidents, logger, service.OnRevert)
	defer validator.Attach()()

	turns := supervisor.NewTurnSupervisor(games, service.HandleMove, clock, logger, config.TurnTimeout())
	defer turns.Attach()()

	lifecycles := reaper.NewTableReaper(games, tables, clock, logger, config.TableGrace())
	defer lifecycles.Attach()()

	collector := stats.NewCollector()
	defer games.Subscribe(collector.OnGameWrite)()
	ws.SetStatsHandler(collector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := service.Bootstrap(ctx); err != nil {
		return err
	}

	logger.Info("Starting blackjackd",
		"addr", addr,
		"tables", len(config.Tables),
		"turn_timeout", config.TurnTimeout(),
		"incident_db", config.Server.IncidentDB,
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := ws.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		return ws.Stop()
	})

	return group.Wait()
}

func setupLogger(config *server.ServerConfig, debug bool) *log.Logger {
	out := os.Stderr
	if config.Server.LogFile != "" {
		if f, err := os.OpenFile(config.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		}
	}

	level := log.InfoLevel
	if parsed, err := log.ParseLevel(config.Server.LogLevel); err == nil {
		level = parsed
	}
	if debug {
		level = log.DebugLevel
	}

	return log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
}
