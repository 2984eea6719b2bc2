package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"TemaScan/internal/di"
	"TemaScan/pkg/config"
)

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s port=%d workers=%d", cfg.Environment, cfg.Server.Port, cfg.Scan.Workers)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
