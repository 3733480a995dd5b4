package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/homehub/heating-controller/db"
	"github.com/homehub/heating-controller/internal/api"
	"github.com/homehub/heating-controller/internal/config"
	"github.com/homehub/heating-controller/internal/datadog"
	"github.com/homehub/heating-controller/internal/heating"
	"github.com/homehub/heating-controller/internal/logging"
	"github.com/homehub/heating-controller/internal/mqtt"
	"github.com/homehub/heating-controller/internal/notifications"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Int("zones", len(cfg.Zones)).
		Msg("Starting heating controller")

	datadog.InitMetrics(cfg.Datadog)
	notifications.Init(cfg.NtfyTopic)

	conn, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open state database")
	}
	defer conn.Close()
	store := db.NewStore(conn)

	client := mqtt.NewClient(cfg.MQTT)
	svc := heating.New(cfg, client, store)
	svc.Register(client)

	if err := client.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MQTT broker")
	}
	defer client.Disconnect()

	if cfg.API.Enabled {
		go func() {
			if err := api.NewServer(svc).Start(cfg.API.Port); err != nil {
				log.Error().Err(err).Msg("REST API server stopped")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Run(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Info().Str("signal", received.String()).Msg("Shutting down heating controller")
	cancel()
}
