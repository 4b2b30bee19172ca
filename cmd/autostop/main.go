package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/OldHunter0/Trend-Autostop/internal/config"
	"github.com/OldHunter0/Trend-Autostop/internal/exchange/bybit"
	"github.com/OldHunter0/Trend-Autostop/internal/monitor"
	"github.com/OldHunter0/Trend-Autostop/internal/monitoring"
	"github.com/OldHunter0/Trend-Autostop/internal/notifications"
	"github.com/OldHunter0/Trend-Autostop/internal/state"
	"github.com/OldHunter0/Trend-Autostop/pkg/reporting"
)

func main() {
	var (
		envFile       = flag.String("env", ".env", "Path to .env file")
		positionsFile = flag.String("positions", "positions.json", "Path to managed-positions config")
		reportPath    = flag.String("report", "", "Export the operation log to this .xlsx file and exit")
		showStatus    = flag.Bool("status", false, "Print the operation log and exit")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No %s file found, using environment variables", *envFile)
	}

	cfg := config.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	store, err := state.NewStore(cfg.StateDir)
	if err != nil {
		log.Fatalf("Failed to open state store: %v", err)
	}

	if *reportPath != "" || *showStatus {
		runReport(store, *reportPath, *showStatus)
		return
	}

	positions, err := config.LoadPositions(*positionsFile)
	if err != nil {
		log.Fatalf("Invalid positions config: %v", err)
	}
	if len(positions) == 0 {
		log.Fatal("No positions configured")
	}

	log.Printf("Starting Trend Autostop in %s mode (%d positions)", cfg.Environment, len(positions))

	exch := bybit.NewClient(bybit.Config{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.Secret,
		Testnet:   cfg.Exchange.Testnet,
		Demo:      cfg.Exchange.Demo,
	})
	log.Printf("Exchange: %s (%s)", exch.GetName(), exch.GetEnvironment())

	var notifier notifications.Notifier = notifications.NoopNotifier{}
	if cfg.Notifications.TelegramToken != "" {
		notifier = notifications.NewTelegramNotifier(
			cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
	} else {
		log.Println("Telegram notifications disabled (no token configured)")
	}

	healthChecker := monitoring.NewHealthChecker()
	healthChecker.SetConnected(true)

	mon, err := monitor.New(cfg, exch, store, notifier, healthChecker, positions)
	if err != nil {
		log.Fatalf("Failed to create monitor: %v", err)
	}

	go setupMonitoringServers(cfg, healthChecker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()

	if err := notifier.SendAlert("info", "Trend Autostop started"); err != nil {
		log.Printf("Failed to send startup notification: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	mon.Stop()
	cancel()
	<-done

	reporting.PrintPositions(mon.Records())
	log.Println("Monitor stopped")
}

// runReport handles the offline reporting flags.
func runReport(store *state.Store, reportPath string, showStatus bool) {
	ops, err := store.ReadOperations()
	if err != nil {
		log.Fatalf("Failed to read operation log: %v", err)
	}

	if showStatus {
		reporting.PrintOperations(ops, 50)
	}

	if reportPath != "" {
		if err := reporting.WriteOperationsXLSX(ops, reportPath); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
		log.Printf("Operation log exported to %s (%d entries)", reportPath, len(ops))
	}
}

func setupMonitoringServers(cfg *config.Config, healthChecker *monitoring.HealthChecker) {
	healthMux := http.NewServeMux()
	healthMux.Handle("/health", healthChecker)

	go func() {
		log.Printf("Starting health server on port %d", cfg.Monitoring.HealthPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Monitoring.HealthPort), healthMux); err != nil {
			log.Printf("Health server error: %v", err)
		}
	}()

	go func() {
		log.Printf("Starting Prometheus server on port %d", cfg.Monitoring.PrometheusPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort), monitoring.NewMetricsHandler()); err != nil {
			log.Printf("Prometheus server error: %v", err)
		}
	}()
}
