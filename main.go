package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
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

var (
	newEntriesCounter prometheus.Counter
	doiUpdatesCounter prometheus.Counter
)

func init() {
	newEntriesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "new_entries_added_total",
			Help: "Total number of new feed entries added to the database.",
		},
	)
	doiUpdatesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "doi_updates_total",
			Help: "Total number of DOI back-fills applied to stored entries.",
		},
	)
	prometheus.MustRegister(newEntriesCounter, doiUpdatesCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		logging.Fatal("Sources file error", zap.Error(err))
	}
	logging.Info("Feed sources loaded", zap.Int("count", len(sources)))

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to entries database.")

	// pgvector muss vor der Migration der Embedding-Spalte vorhanden sein
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		logging.Fatal("Failed to create vector extension", zap.Error(err))
	}
	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.Entry{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Services
	store := storage.NewStore(db, logging)
	llmClient := llm.NewClient(cfg)
	enricher := services.NewEnricher(cfg, llmClient, llmClient, logging)
	provider := rss.NewFetcher(cfg, logging)
	syncService := services.NewSyncService(cfg, sources, provider, store, enricher, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "sources": len(sources)})
	})

	setupEntryRoutes(router, db, logging)
	setupSyncRoutes(router, syncService)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled sync job...")
		res := syncService.RunAll(context.Background())
		newEntriesCounter.Add(float64(res.Inserted))
		doiUpdatesCounter.Add(float64(res.Updated))
		logging.Info("Cron job completed",
			zap.Int("new_entries", res.Inserted),
			zap.Int("doi_updates", res.Updated),
			zap.Int("sources_failed", res.SourcesFailed))
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupEntryRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/entries")

	rg.GET("/", func(c *gin.Context) {
		query := db.Model(&models.Entry{})
		if source := c.Query("source"); source != "" {
			query = query.Where("source = ?", source)
		}
		var entries []models.Entry
		if err := query.Order("published desc").Limit(200).Find(&entries).Error; err != nil {
			log.Error("Database query for entries failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, entries)
	})

	rg.POST("/query", func(c *gin.Context) {
		type EntryQuery struct {
			Source string `json:"source"`
			PMID   string `json:"pmid"`
			DOI    string `json:"doi"`
			Limit  int    `json:"limit"`
		}

		var req EntryQuery
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		query := db.Model(&models.Entry{})
		if req.Source != "" {
			query = query.Where("source = ?", req.Source)
		}
		if req.PMID != "" {
			query = query.Where("pmid = ?", req.PMID)
		}
		if req.DOI != "" {
			query = query.Where("doi = ?", req.DOI)
		}
		if req.Limit > 0 {
			query = query.Limit(req.Limit)
		}

		var entries []models.Entry
		if err := query.Order("published desc").Find(&entries).Error; err != nil {
			log.Error("Database query for entries failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, entries)
	})

	rg.POST("/:id/like", func(c *gin.Context) {
		id := c.Param("id")
		res := db.Model(&models.Entry{}).
			Where("id = ?", id).
			UpdateColumn("likes_count", gorm.Expr("likes_count + 1"))
		if res.Error != nil {
			log.Error("Failed to increment likes", zap.String("id", id), zap.Error(res.Error))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "liked"})
	})
}

func setupSyncRoutes(router *gin.Engine, syncService *services.SyncService) {
	rg := router.Group("/sync")

	rg.POST("/all", func(c *gin.Context) {
		go func() {
			res := syncService.RunAll(context.Background())
			newEntriesCounter.Add(float64(res.Inserted))
			doiUpdatesCounter.Add(float64(res.Updated))
			syncService.Logger.Info("Async sync completed",
				zap.Int("new_entries", res.Inserted),
				zap.Int("doi_updates", res.Updated))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Sync for all sources triggered."})
	})

	rg.POST("/source/:name", func(c *gin.Context) {
		name := c.Param("name")
		var match *config.FeedSource
		for i := range syncService.Sources {
			if syncService.Sources[i].Name == name {
				match = &syncService.Sources[i]
				break
			}
		}
		if match == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
			return
		}

		src := *match
		go func() {
			inserted, updated, err := syncService.RunSource(context.Background(), src)
			if err != nil {
				syncService.Logger.Error("Async single-source sync failed",
					zap.String("source", src.Name), zap.Error(err))
				return
			}
			newEntriesCounter.Add(float64(inserted))
			doiUpdatesCounter.Add(float64(updated))
			syncService.Logger.Info("Async single-source sync completed",
				zap.String("source", src.Name),
				zap.Int("new_entries", inserted),
				zap.Int("doi_updates", updated))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Sync for source " + name + " triggered."})
	})
}
