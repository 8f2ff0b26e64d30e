// Command qna-tender is the main entrypoint for the auditorium Q&A
// scoreboard bot. It:
//   - Loads configuration and initializes structured logging.
//   - Restores the vote snapshot from disk before any live event arrives.
//   - Optionally connects to Postgres for check-in tracking.
//   - Starts background jobs: schedule polling and the chat bot.
//   - Exposes an HTTP server with /healthz, /status, /metrics, and the
//     ranking read API.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/qna-tender/chat"
	"github.com/onnwee/qna-tender/checkin"
	"github.com/onnwee/qna-tender/config"
	"github.com/onnwee/qna-tender/db"
	"github.com/onnwee/qna-tender/qna"
	"github.com/onnwee/qna-tender/schedule"
	"github.com/onnwee/qna-tender/server"
	"github.com/onnwee/qna-tender/snapshot"
	"github.com/onnwee/qna-tender/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdownTracing, err := telemetry.InitTracing("qna-tender", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional DB for check-in tracking
	var checkins *checkin.Store
	var database *sql.DB
	if cfg.DBDsn != "" {
		database, err = db.Connect()
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		if err := db.Migrate(ctx, database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
		checkins = checkin.NewStore(database)
		slog.Info("check-in tracking enabled")
	} else {
		slog.Info("check-in tracking disabled (DB_DSN not set)")
	}

	// Chat bot doubles as the engine's transport (event cache + Helix profiles)
	bot, err := chat.NewBot(cfg, checkins)
	if err != nil {
		slog.Error("chat bot init failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Snapshot store + engine. Load must complete before the bot connects,
	// otherwise a slow load could overwrite live mutations.
	if err := os.MkdirAll(filepath.Dir(cfg.SnapshotPath), 0o755); err != nil {
		slog.Error("failed to create data dir", slog.Any("err", err))
		os.Exit(1)
	}
	registry := schedule.NewRegistry(cfg.AuditoriumChannels)
	engine := qna.New(snapshot.NewStore(cfg.SnapshotPath), bot, registry, cfg.HomeDomains)
	bot.SetEngine(engine)
	if err := engine.Load(ctx); err != nil {
		slog.Error("snapshot load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Schedule poller keeps the auditorium registry fresh
	if cfg.HasScheduleSource() {
		var src schedule.Source
		if cfg.PentabarfURL != "" {
			src = &schedule.PentabarfSource{URL: cfg.PentabarfURL}
		} else {
			src = &schedule.PretalxClient{BaseURL: cfg.PretalxBaseURL, Event: cfg.PretalxEvent, Token: cfg.PretalxToken}
		}
		go schedule.StartPoller(ctx, src, registry, bot, engine, cfg.SchedulePollInterval, cfg.ScheduleAutoCountdown)
	}

	go func() {
		if err := bot.Start(ctx, registry.Rooms()); err != nil {
			slog.Error("chat bot exited", slog.Any("err", err))
		}
	}()

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{Addr: pprofAddr, ReadHeaderTimeout: 5 * time.Second}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewMux(engine, checkins, database),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", slog.Any("err", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", slog.Any("err", err))
	}
}
