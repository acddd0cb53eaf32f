package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"rss-digest/config"
	"rss-digest/models"
)

// ChatClient abstrahiert die Chat-Completions-API.
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// EmbeddingClient abstrahiert die Batch-Embedding-API.
type EmbeddingClient interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Enricher reichert neue Einträge per LLM an: Titel-Übersetzung, TL;DR
// (ein- oder zweistufig), Keyword-Extraktion und Batch-Embeddings. Jede
// Stufe degradiert bei Fehlern auf einen dokumentierten Fallback-Wert und
// bricht den Eintrag nie ab.
type Enricher struct {
	Config *config.Config
	Chat   ChatClient
	Embed  EmbeddingClient
	Logger *zap.Logger
}

// NewEnricher erstellt eine neue Instanz des Enrichers.
func NewEnricher(cfg *config.Config, chat ChatClient, embed EmbeddingClient, logger *zap.Logger) *Enricher {
	return &Enricher{Config: cfg, Chat: chat, Embed: embed, Logger: logger}
}

// EnrichAll reichert alle neuen Einträge einer Quelle an. Die Einträge
// werden sequenziell verarbeitet; nur das Embedding läuft als ein einziger
// Batch-Aufruf über alle Einträge, um den Call-Overhead zu amortisieren.
func (e *Enricher) EnrichAll(ctx context.Context, entries []*models.Entry) {
	for _, entry := range entries {
		e.enrichEntry(ctx, entry)
	}
	if e.Config.EmbeddingsEnabled {
		e.embedBatch(ctx, entries)
	}
}

func (e *Enricher) enrichEntry(ctx context.Context, entry *models.Entry) {
	entry.TitleTranslated = e.TranslateTitle(ctx, entry.Title)

	content := Truncate(PreprocessContent(entry.FullContent), e.Config.SummaryMaxChars)
	if e.Config.TwoStepSummary {
		entry.EnglishTLDR, entry.ChineseTLDR = e.SummarizeTwoStep(ctx, content)
	} else {
		entry.TLDR = e.Summarize(ctx, content)
	}

	if e.Config.KeywordsEnabled {
		entry.Keywords = e.ExtractKeywords(ctx, entry.Title, content)
	}
}

// TranslateTitle übersetzt den Artikeltitel in die Zielsprache.
// Bei Fehlern wird der Originaltitel unverändert zurückgegeben.
func (e *Enricher) TranslateTitle(ctx context.Context, title string) string {
	system := fmt.Sprintf("You are a translator specializing in academic article titles. "+
		"Translate the following title to %s. Ensure the translation is concise and accurate, "+
		"maintaining any technical terms. Use Traditional Chinese (Taiwan) and avoid using Simplified Chinese.",
		e.Config.TargetLanguage)

	out, err := e.Chat.Complete(ctx, system, title)
	if err != nil {
		e.Logger.Warn("Titel-Übersetzung fehlgeschlagen, Original bleibt", zap.Error(err))
		return title
	}
	return out
}

// Summarize erzeugt ein einstufiges TL;DR direkt in der Zielsprache.
// Fallback bei Fehlern ist der vorverarbeitete, gekürzte Originaltext.
func (e *Enricher) Summarize(ctx context.Context, content string) string {
	system := fmt.Sprintf("You are an expert in summarizing academic research. "+
		"Create an extremely concise TL;DR summary in %s of the following academic abstract. "+
		"Summarize in 3-4 short, clear sentences covering the main objective, key method and primary finding. "+
		"Start with the emoji 💡 followed by \"TL;DR: \". Do not use headings or multiple paragraphs.",
		e.Config.TargetLanguage)

	out, err := e.Chat.Complete(ctx, system, content)
	if err != nil {
		e.Logger.Warn("TL;DR-Erzeugung fehlgeschlagen, Fallback auf Originaltext", zap.Error(err))
		return Truncate(content, e.Config.FallbackMaxChars)
	}
	return out
}

// SummarizeTwoStep erzeugt zuerst ein englisches TL;DR und übersetzt es
// dann in die Zielsprache. Scheitert der erste Schritt, fallen beide Felder
// auf den gekürzten Originaltext zurück; scheitert nur die Übersetzung,
// wird das englische TL;DR übernommen.
func (e *Enricher) SummarizeTwoStep(ctx context.Context, content string) (english, translated string) {
	system := "You are an expert in summarizing academic research. " +
		"Create an extremely concise TL;DR summary in English of the following academic abstract. " +
		"Summarize in 3-4 short, clear sentences covering the main objective, key method and primary finding. " +
		"Start with the emoji 💡 followed by \"TL;DR: \". Do not use headings or multiple paragraphs."

	english, err := e.Chat.Complete(ctx, system, content)
	if err != nil {
		e.Logger.Warn("Englisches TL;DR fehlgeschlagen, Fallback auf Originaltext", zap.Error(err))
		fallback := Truncate(content, e.Config.FallbackMaxChars)
		return fallback, fallback
	}

	translateSystem := fmt.Sprintf("Translate the following TL;DR summary to %s. "+
		"Keep the 💡 TL;DR prefix. Use Traditional Chinese (Taiwan) and avoid using Simplified Chinese.",
		e.Config.TargetLanguage)
	translated, err = e.Chat.Complete(ctx, translateSystem, english)
	if err != nil {
		e.Logger.Warn("TL;DR-Übersetzung fehlgeschlagen, englische Fassung bleibt", zap.Error(err))
		return english, english
	}
	return english, translated
}

// ExtractKeywords extrahiert Schlagwörter aus Titel und Abstract.
// Bei Fehlern wird eine leere Liste zurückgegeben.
func (e *Enricher) ExtractKeywords(ctx context.Context, title, content string) []string {
	system := "You extract keywords from academic abstracts. " +
		"Return 3-8 concise keywords as a JSON array of strings, nothing else."

	out, err := e.Chat.Complete(ctx, system, title+"\n\n"+content)
	if err != nil {
		e.Logger.Warn("Keyword-Extraktion fehlgeschlagen, leere Liste", zap.Error(err))
		return []string{}
	}
	return parseKeywords(out)
}

// parseKeywords akzeptiert ein JSON-Array oder notfalls eine kommagetrennte
// Liste, da LLM-Ausgaben nicht immer formattreu sind.
func parseKeywords(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var keywords []string
	if err := json.Unmarshal([]byte(raw), &keywords); err == nil {
		return cleanKeywords(keywords)
	}
	return cleanKeywords(strings.Split(raw, ","))
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// embedBatch vektorisiert alle Einträge in einem einzigen Aufruf.
// Schlägt der Batch fehl, bekommt jeder Eintrag ein Null-Embedding,
// niemals ein Teilergebnis.
func (e *Enricher) embedBatch(ctx context.Context, entries []*models.Entry) {
	if len(entries) == 0 {
		return
	}

	texts := make([]string, len(entries))
	for i, entry := range entries {
		entry.EmbeddingStrategy = e.Config.EmbeddingStrategy
		entry.EmbeddingText = e.embeddingText(entry)
		texts[i] = entry.EmbeddingText
	}

	vectors, err := e.Embed.Embed(ctx, texts)
	if err != nil || len(vectors) != len(entries) {
		e.Logger.Warn("Batch-Embedding fehlgeschlagen, alle Einträge ohne Embedding",
			zap.Int("batch_size", len(entries)), zap.Error(err))
		for _, entry := range entries {
			entry.Embedding = nil
		}
		return
	}

	for i, entry := range entries {
		v := pgvector.NewVector(vectors[i])
		entry.Embedding = &v
	}
}

// embeddingText wählt nach Strategie die Textfelder, die vor der
// Vektorisierung konkateniert werden.
func (e *Enricher) embeddingText(entry *models.Entry) string {
	summary := entry.EnglishTLDR
	if summary == "" {
		summary = entry.TLDR
	}
	original := Truncate(PreprocessContent(entry.FullContent), e.Config.SummaryMaxChars)

	switch e.Config.EmbeddingStrategy {
	case "summary-only":
		if summary != "" {
			return summary
		}
		return original
	case "original-only":
		return original
	default: // hybrid
		parts := []string{entry.Title}
		if summary != "" {
			parts = append(parts, summary)
		}
		if original != "" {
			parts = append(parts, original)
		}
		return strings.Join(parts, "\n\n")
	}
}
