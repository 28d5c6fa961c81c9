// Command kilnd is the furnace control daemon: it wires the core control
// plane (clock, GPIO, thermocouple reader, actuators, interlocks, PID,
// executor, catalog, controller loop) to an HTTP adapter, following the
// teacher's flag+config.Load bring-up idiom (github.com/itohio/golpm's
// lpm/main.go) adapted from a GUI application to a headless daemon with
// signal-driven graceful shutdown.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itohio/kilnctl/internal/catalog"
	"github.com/itohio/kilnctl/internal/clock"
	"github.com/itohio/kilnctl/internal/config"
	"github.com/itohio/kilnctl/internal/controller"
	"github.com/itohio/kilnctl/internal/gpio"
	"github.com/itohio/kilnctl/internal/httpapi"
	"github.com/itohio/kilnctl/internal/logging"
)

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		logFlag    = flag.String("log", "kilnd.log", "Log file path")
		addrFlag   = flag.String("addr", "", "HTTP listen address override (e.g. :8080)")
	)
	flag.Parse()

	logger, logFile := logging.Init(*logFlag, slog.LevelInfo)
	if logFile != nil {
		defer logFile.Close()
	}
	slog.SetDefault(logger)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *addrFlag != "" {
		cfg.HTTP.Addr = *addrFlag
	}

	chip, err := openChip(cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize gpio: %v", err)
	}

	store := catalog.NewYAMLStore(cfg.Catalog.StorePath, logger)
	cat, err := catalog.New(store)
	if err != nil {
		logger.Warn("catalog load reported an error, continuing with partial user catalog", "error", err)
	}

	ctrl := controller.New(chip, cat, cfg.Pins.ToControllerPins(), cfg.Control.TickPeriod, clock.System{}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go ctrl.Run(ctx)

	if _, err := ctrl.Submit(ctx, controller.Command{Kind: controller.CmdTunePID, Kp: cfg.PID.Kp, Ki: cfg.PID.Ki, Kd: cfg.PID.Kd}); err != nil {
		logger.Warn("failed to apply configured pid gains", "error", err)
	}

	router := httpapi.NewRouter(ctrl, logger)
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Give the controller's own ctx-cancellation shutdown sequence (heater
	// off, GPIO released) time to run before the process exits.
	time.Sleep(cfg.Control.TickPeriod)
}

// openChip attempts real hardware, falling back to Simulation Mode per
// spec §7: HardwareUnavailable degrades rather than aborting startup.
func openChip(cfg *config.Config, logger *slog.Logger) (gpio.Chip, error) {
	if cfg.GPIO.ForceSimulation {
		logger.Info("gpio simulation forced by configuration")
		return gpio.NewSimulation(), nil
	}

	chip, err := gpio.OpenHardware()
	if err != nil {
		logger.Warn("gpio hardware unavailable, falling back to simulation", "error", err)
		return gpio.NewSimulation(), nil
	}
	return chip, nil
}
