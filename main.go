package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/sagarsiwach/invoice-parser/cmd"
	"github.com/sagarsiwach/invoice-parser/internal/config"
	"github.com/sagarsiwach/invoice-parser/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Commands load and validate the full configuration themselves; here it
	// only decides how to log.
	cfg, err := config.Load()
	if err != nil {
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cmd.Execute()
}
