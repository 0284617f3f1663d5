package main

import (
	"fmt"
	"os"

	"github.com/marmistrz/ipu6-camera-hal/internal/cli"
	"github.com/marmistrz/ipu6-camera-hal/internal/config"
	"github.com/marmistrz/ipu6-camera-hal/internal/logging"
	"github.com/marmistrz/ipu6-camera-hal/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.Setup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logging: %v\n", err)
		os.Exit(1)
	}

	var store *storage.Store
	if cfg.Paths.DatabasePath != "" {
		store, err = storage.New(cfg.Paths.DatabasePath)
		if err != nil {
			log.Warn("database unavailable, sessions will not be recorded", "path", cfg.Paths.DatabasePath, "error", err)
			store = nil
		}
	}
	defer store.Close()

	if err := cli.NewRootCmd(cfg, log, store).Execute(); err != nil {
		store.Close()
		os.Exit(1)
	}
}
