package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	garfieldwebui "github.com/MegaGrindStone/garfield-web-ui"
	"github.com/MegaGrindStone/garfield-web-ui/internal/handlers"
	"github.com/MegaGrindStone/garfield-web-ui/internal/session"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cmd := &cli.Command{
		Name:  "garfield-web-ui",
		Usage: "Chat with a lazy, sarcastic cat that gives advice",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the YAML config file",
			},
			&cli.StringFlag{
				Name:  "port",
				Usage: "HTTP port, overrides the config file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfgPath := cmd.String("config")
	if cfgPath == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return err
		}
		cfgPath = p
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if port := cmd.String("port"); port != "" {
		cfg.Port = port
	}
	if cmd.Bool("debug") {
		cfg.LogLevel = "debug"
	}

	logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogMode)
	if err != nil {
		return err
	}
	logger.Info("Config loaded", slog.String("path", cfgPath), slog.String("provider", cfg.LLM.base().Provider))

	engine, err := cfg.LLM.engine(logger)
	if err != nil {
		return fmt.Errorf("error creating engine: %w", err)
	}

	ctrl := session.New(engine, cfg.sessionOptions(), logger)

	m, err := handlers.NewMain(ctrl, cfg.LoadingText, logger)
	if err != nil {
		return err
	}

	// The page is served while the model loads, showing the loading text.
	initCtx, initCancel := context.WithCancel(ctx)
	defer initCancel()
	go func() {
		if err := ctrl.Initialize(initCtx); err != nil {
			logger.Error("Failed to initialize engine", slog.String(errLoggerKey, err.Error()))
		}
	}()

	staticFS, err := fs.Sub(garfieldwebui.StaticFS, "static")
	if err != nil {
		return err
	}
	fileServer := http.FileServer(http.FS(staticFS))

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/", m.HandleHome)
	mux.HandleFunc("/messages", m.HandleMessages)
	mux.HandleFunc("/state", m.HandleState)
	mux.HandleFunc("/sse", m.HandleSSE)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		initCancel()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := m.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown sse server", slog.String(errLoggerKey, err.Error()))
		}
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := ctrl.Close(ctx); err != nil {
			logger.Error("Failed to close session", slog.String(errLoggerKey, err.Error()))
		}
	}()

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-shutdown:
		logger.Info("Start shutdown", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String(errLoggerKey, err.Error()))
			if err := srv.Close(); err != nil {
				return fmt.Errorf("forcing server close: %w", err)
			}
		}
	}

	return nil
}
