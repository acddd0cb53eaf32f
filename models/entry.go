package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Entry repräsentiert einen Artikel aus einem akademischen RSS-Feed samt
// aller angereicherten Felder. Identitätsschlüssel ist (source, pmid);
// pro Paar existiert höchstens eine Zeile. Die DOI ist bewusst NICHT Teil
// des Schlüssels, sie kann in späteren Läufen nachgetragen werden.
type Entry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Source string `json:"source" gorm:"uniqueIndex:idx_entries_source_pmid;index;not null"`
	PMID   string `json:"pmid" gorm:"column:pmid;uniqueIndex:idx_entries_source_pmid;not null"`
	DOI    string `json:"doi,omitempty" gorm:"column:doi;index"`

	Title           string `json:"title"`
	TitleTranslated string `json:"title_translated,omitempty"`
	Link            string `json:"link"`
	// Publikationszeitpunkt als ISO-8601-String, so wie der Feed ihn liefert
	Published   string `json:"published"`
	FullContent string `json:"full_content,omitempty" gorm:"type:text"`

	// Zusammenfassungen: einstufig (tldr) oder zweistufig (english/chinese)
	TLDR        string `json:"tldr,omitempty" gorm:"column:tldr;type:text"`
	EnglishTLDR string `json:"english_tldr,omitempty" gorm:"column:english_tldr;type:text"`
	ChineseTLDR string `json:"chinese_tldr,omitempty" gorm:"column:chinese_tldr;type:text"`

	Keywords pq.StringArray `json:"keywords,omitempty" gorm:"type:text[]"`

	Embedding         *pgvector.Vector `json:"embedding,omitempty" gorm:"type:vector(1536)"`
	EmbeddingText     string           `json:"embedding_text,omitempty" gorm:"type:text"`
	EmbeddingStrategy string           `json:"embedding_strategy,omitempty"`

	// Nur beim Insert mit Default belegt, Updates fassen dieses Feld nie an
	LikesCount int `json:"likes_count" gorm:"default:0"`
}

// TableName gibt explizit den Tabellennamen an.
func (Entry) TableName() string {
	return "rss_entries"
}
