package main

import (
	"flag"
	"log"
	"os"

	"SignalGate/internal/di"
	"SignalGate/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s strategy=%s assets=%v", cfg.Environment, cfg.Engine.Strategy, cfg.Engine.Assets)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: connected and schema ready - db: %s", cfg.ClickHouse.Database)
	log.Printf("kafka: connected brokers=%v evidence=%s events=%s",
		cfg.Kafka.Brokers, cfg.Kafka.EvidenceTopic, cfg.Kafka.EventsTopic)

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
