package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/mh-salari/psa-data-quality/internal/config"
	logger "github.com/mh-salari/psa-data-quality/internal/logging"
	"github.com/mh-salari/psa-data-quality/internal/runner"
)

func main() {
	projectRoot, err := os.Getwd()
	if err != nil {
		panic("failed to resolve working directory: " + err.Error())
	}

	// Initialize configuration
	if err := config.Init(projectRoot); err != nil {
		panic("failed to initialize configuration: " + err.Error())
	}

	// Initialize Logger
	log, err := logger.Init(projectRoot, config.Conf.Logging)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Stage to run: eyelink, process, distance, angles, clean, pupilsize
	// or all (default).
	stage := "all"
	if len(os.Args) > 1 {
		stage = os.Args[1]
	}

	r, err := runner.New(config.Conf, log)
	if err != nil {
		log.Fatal("Failed to set up pipeline", zap.Error(err))
	}

	log.Info("Starting pipeline",
		zap.String("stage", stage),
		zap.String("data_root", config.Conf.Data.Root))

	if err := r.Run(stage); err != nil {
		log.Fatal("Pipeline failed", zap.String("stage", stage), zap.Error(err))
	}

	log.Info("Pipeline finished", zap.String("stage", stage))
}
