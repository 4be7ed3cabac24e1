package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "gate_control/docs"
	"gate_control/internal/cloud"
	"gate_control/internal/config"
	"gate_control/internal/events"
	"gate_control/internal/handlers"
	"gate_control/internal/logger"
	"gate_control/internal/modem"
	"gate_control/internal/repository"
	"gate_control/internal/repository/db"
	"gate_control/internal/server"
	"gate_control/internal/service"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gate controller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "HTTP port for the touch panel (default 8080)")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func newSession(cfg *config.Config, log *logger.Logger) *modem.Session {
	return modem.NewSession(
		modem.SerialDialer{PortName: cfg.Modem.Port, BaudRate: cfg.Modem.Baud},
		modem.Config{
			GatePhone:    cfg.Gate.Phone,
			Codes:        cfg.Codes(),
			ProbeTimeout: cfg.Modem.ProbeTimeout,
			SendTimeout:  cfg.Modem.SendTimeout,
		},
		log.Named("modem"),
	)
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	sqlDB, err := db.InitDB(db.MemoryDSN)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("index_close_failed", "err", cerr)
		}
	}()

	repos := repository.NewRepository(sqlDB, cfg.Activity.File, cfg.Location())
	session := newSession(cfg, log)
	defer func() { _ = session.Close() }()

	services := service.NewService(repos, session, service.Config{
		Location:  cfg.Location(),
		AutoClose: cfg.AutoClose(),
		Dispatcher: service.DispatcherConfig{
			QueueSize:      cfg.Dispatcher.QueueSize,
			Momentary:      cfg.Gate.Momentary,
			HealthInterval: cfg.Modem.HealthInterval,
		},
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
	}, log)

	for _, op := range cfg.Auth.Operators {
		if _, err := services.AddOperator(ctx, op.Username, op.Password); err != nil {
			return fmt.Errorf("seed operator %q: %w", op.Username, err)
		}
	}
	if n, err := services.Replay(ctx, cfg.Activity.Replay); err != nil {
		log.Warnw("activity_replay_failed", "file", cfg.Activity.File, "err", err)
	} else {
		log.Infow("activity_replayed", "entries", n, "file", cfg.Activity.File)
	}

	var wg sync.WaitGroup
	runCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		services.Run(runCtx)
	}()

	if cfg.Cloud.Broker != "" {
		adapter := cloud.NewAdapter(services, services, cloud.Config{
			Broker:   cfg.Cloud.Broker,
			ClientID: cfg.Cloud.ClientID,
			Username: cfg.Cloud.Username,
			Token:    cfg.Cloud.Token,
			Prefix:   cfg.Cloud.Prefix,
			LogLines: cfg.Activity.CloudLines,
			Location: cfg.Location(),
		}, log.Named("cloud"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adapter.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("cloud_stopped", "err", err)
			}
		}()
	}

	if cfg.NATS.URL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, log.Named("nats"))
		if err != nil {
			// the bus is optional; the gate runs without it
			log.Errorw("nats_connect_failed", "url", cfg.NATS.URL, "err", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { _ = pub.Close() }()
				pub.Run(runCtx, services)
			}()
		}
	}

	srv := server.New(cfg.Port, handlers.NewHandler(services, log.Named("http")).InitRoutes(), log.Named("http"))
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Run() }()

	select {
	case <-ctx.Done():
		log.Infow("shutting_down", "reason", context.Cause(ctx))
	case err := <-srvErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("http_forced_shutdown", "err", err)
	}
	return nil
}
