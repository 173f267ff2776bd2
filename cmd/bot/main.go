package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"optbot/internal/broker"
	"optbot/internal/config"
	"optbot/internal/engine"
	"optbot/internal/market"
	"optbot/internal/trade"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	// The single exit point: run's deferred releases (log file, journal,
	// broker session) have all executed by the time Fatalf terminates.
	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg config.Config) error {
	closeLog, err := setupLogging(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	runID := generateRunID()
	journal, err := engine.NewJournal(cfg.JournalPath, runID)
	if err != nil {
		return fmt.Errorf("journal error: %w", err)
	}
	defer func() {
		if err := journal.Close(); err != nil {
			log.Errorf("failed to close journal: %v", err)
		}
	}()

	ctx := context.Background()

	brokerClient, err := buildBroker(ctx, cfg)
	if err != nil {
		// A dead session in live mode is the one fatal class; everything
		// downstream is isolated per symbol.
		return fmt.Errorf("broker session: %w", err)
	}
	defer func() {
		if err := brokerClient.Disconnect(); err != nil {
			log.Errorf("failed to release broker session: %v", err)
		}
	}()

	manager := trade.NewManager(brokerClient, trade.Params{
		TakeProfitPct:  cfg.TakeProfitPct,
		StopLossPct:    cfg.StopLossPct,
		PartialSellPct: cfg.PartialSellPct,
		EODHour:        cfg.EODHour,
		EODMinute:      cfg.EODMinute,
		Loc:            cfg.Loc,
	})

	report := engine.New(cfg, brokerClient, manager, journal).Run(ctx)
	if n := report.Failures(); n > 0 {
		log.Warnf("%d of %d symbols failed this pass", n, len(report.Results))
	}
	// Per-symbol failures are logged, not fatal: the pass completed.
	return nil
}

func buildBroker(ctx context.Context, cfg config.Config) (broker.Broker, error) {
	if cfg.Mode == config.ModeSim {
		log.Info("running in simulation mode (no live connection)")
		return broker.NewSim(market.NewSyntheticSource(time.Now().UnixNano())), nil
	}

	var source market.Source
	if cfg.DataFeed == "polygon" {
		source = market.NewPolygonSource(cfg.PolygonAPIKey)
	} else {
		source = market.NewAlpacaSource(cfg.APIKey, cfg.APISecret, cfg.DataFeed)
	}

	client := broker.NewAlpaca(cfg.APIKey, cfg.APISecret, cfg.BrokerBaseURL, source, cfg.FillPoll, cfg.FillTimeout)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func setupLogging(path string) (func(), error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return func() { _ = file.Close() }, nil
}

func generateRunID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return timestamp
	}
	return timestamp + "-" + hex.EncodeToString(randomBytes)
}
