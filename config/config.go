package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`

	// OpenAI-kompatible API für Übersetzung, TL;DR, Keywords und Embeddings
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIBaseURL  string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	ChatModel      string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	TargetLanguage string `envconfig:"TARGET_LANGUAGE" default:"zh-TW"`
	LLMTimeoutSecs int    `envconfig:"LLM_TIMEOUT_SECS" default:"60"`

	// Pfad zur JSON-Datei mit den RSS-Quellen (Name -> Feed-URL)
	SourcesFile string `envconfig:"RSS_SOURCES_FILE" default:"rss_sources.json"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 6 * * *"`

	// Optionale Anreicherungs-Stufen der Pipeline
	KeywordsEnabled   bool   `envconfig:"KEYWORDS_ENABLED" default:"true"`
	EmbeddingsEnabled bool   `envconfig:"EMBEDDINGS_ENABLED" default:"true"`
	TwoStepSummary    bool   `envconfig:"TWO_STEP_SUMMARY" default:"true"`
	EmbeddingStrategy string `envconfig:"EMBEDDING_STRATEGY" default:"hybrid"`

	// Kürzungs-Schwellen für LLM-Eingaben
	SummaryMaxChars  int `envconfig:"SUMMARY_MAX_CHARS" default:"6000"`
	FallbackMaxChars int `envconfig:"FALLBACK_MAX_CHARS" default:"1500"`

	APISecretKey string `envconfig:"API_SECRET_KEY"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
