package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rss-digest/config"
	"rss-digest/llm"
	"rss-digest/models"
	"rss-digest/providers/rss"
	"rss-digest/services"
	"rss-digest/storage"
)

// synconce führt genau einen Abgleich-Lauf aus und beendet sich.
// Exit-Code 0 bei Erfolg, 1 bei fatalen Startfehlern (fehlende Credentials,
// fehlende/ungültige Quellen-Datei, keine DB-Verbindung). Fehler einzelner
// Quellen werden geloggt und ändern den Exit-Code nicht.
func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Config load error", zap.Error(err))
		os.Exit(1)
	}

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		logging.Error("Sources file error", zap.Error(err))
		os.Exit(1)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Error("Failed to connect to database", zap.Error(err))
		os.Exit(1)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		logging.Error("Failed to create vector extension", zap.Error(err))
		os.Exit(1)
	}
	if err := db.AutoMigrate(&models.Entry{}); err != nil {
		logging.Error("Auto-migration failed", zap.Error(err))
		os.Exit(1)
	}

	store := storage.NewStore(db, logging)
	llmClient := llm.NewClient(cfg)
	enricher := services.NewEnricher(cfg, llmClient, llmClient, logging)
	provider := rss.NewFetcher(cfg, logging)
	syncService := services.NewSyncService(cfg, sources, provider, store, enricher, logging)

	res := syncService.RunAll(context.Background())
	logging.Info("Sync run finished",
		zap.Int("new_entries", res.Inserted),
		zap.Int("doi_updates", res.Updated),
		zap.Int("sources_ok", res.SourcesOK),
		zap.Int("sources_failed", res.SourcesFailed))
}
