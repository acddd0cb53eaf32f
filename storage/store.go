package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rss-digest/models"
)

// enrichmentColumns sind die Spalten, die ein Upsert bei Konflikt auf
// (source, pmid) aktualisieren darf. likes_count fehlt bewusst: es wird nur
// beim Insert mit Default belegt und nie überschrieben.
var enrichmentColumns = []string{
	"title", "title_translated", "link", "published", "full_content",
	"tldr", "english_tldr", "chinese_tldr", "doi", "keywords",
	"embedding", "embedding_text", "embedding_strategy", "updated_at",
}

// Store ist der Adapter auf die Postgres-Tabelle rss_entries. Er ist der
// alleinige dauerhafte Eigentümer des Entry-Zustands.
type Store struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewStore erstellt einen neuen Store.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{DB: db, Logger: logger}
}

// LoadExisting lädt alle gespeicherten Einträge einer Quelle, geschlüsselt
// nach PMID. Wird pro Quelle pro Lauf frisch aufgerufen, damit parallele
// Schreiber anderer Prozesse sichtbar sind.
func (s *Store) LoadExisting(ctx context.Context, source string) (map[string]*models.Entry, error) {
	var rows []*models.Entry
	if err := s.DB.WithContext(ctx).Where("source = ?", source).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load existing entries for %s: %w", source, err)
	}

	existing := make(map[string]*models.Entry, len(rows))
	for _, row := range rows {
		existing[row.PMID] = row
	}
	return existing, nil
}

// InsertNew persistiert neue, angereicherte Einträge per Upsert auf
// (source, pmid). Fehler bei einzelnen Einträgen werden mit vollem Payload
// geloggt und übersprungen, die Geschwister werden trotzdem gespeichert.
func (s *Store) InsertNew(ctx context.Context, entries []*models.Entry) int {
	saved := 0
	for _, entry := range entries {
		err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}, {Name: "pmid"}},
			DoUpdates: clause.AssignmentColumns(enrichmentColumns),
		}).Create(entry).Error
		if err != nil {
			s.Logger.Error("Eintrag konnte nicht gespeichert werden",
				zap.String("source", entry.Source),
				zap.String("pmid", entry.PMID),
				zap.String("title", entry.Title),
				zap.String("link", entry.Link),
				zap.String("doi", entry.DOI),
				zap.Error(err))
			continue
		}
		saved++
	}
	return saved
}

// UpdateDOI trägt eine neue DOI in einen bestehenden Eintrag nach.
// Es wird ausschließlich das DOI-Feld geschrieben (partielles Update),
// alle Anreicherungsfelder bleiben unangetastet.
func (s *Store) UpdateDOI(ctx context.Context, entry *models.Entry) error {
	err := s.DB.WithContext(ctx).
		Model(&models.Entry{}).
		Where("source = ? AND pmid = ?", entry.Source, entry.PMID).
		Updates(map[string]any{"doi": entry.DOI}).Error
	if err != nil {
		return fmt.Errorf("update doi for %s/%s: %w", entry.Source, entry.PMID, err)
	}
	return nil
}
