// Command pipeline runs the full forecasting pipeline once: dataset build,
// feature generation, training, and prediction, producing one model version.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"salesfc/internal/config"
	"salesfc/internal/infrastructure"
	"salesfc/internal/pipeline"
)

func main() {
	configFile := flag.String("config", "", "path to YAML configuration file (optional)")
	horizon := flag.Int("horizon", 0, "override the configured forecast horizon")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	version, err := pipeline.New(*cfg, logger).Run(ctx, *horizon)
	if err != nil {
		logger.Error("Pipeline run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println(version)
}
