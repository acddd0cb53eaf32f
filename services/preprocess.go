package services

import (
	"regexp"
	"strings"
)

var (
	// abstractMarker markiert den Beginn des inhaltlich relevanten Teils
	abstractMarker = regexp.MustCompile(`ABSTRACT|OBJECTIVES`)
	// pmidSuffix ist der nachlaufende Record-Identifier am Textende
	pmidSuffix = regexp.MustCompile(`(?s)\s*PMID:.*$`)
)

// PreprocessContent entfernt Boilerplate aus dem extrahierten Artikeltext,
// bevor er an die LLM-API geht: alles vor dem ersten ABSTRACT/OBJECTIVES-
// Marker und das PMID-Suffix am Ende. Das begrenzt den Token-Verbrauch und
// entfernt nicht-semantischen Feed-Lärm.
func PreprocessContent(text string) string {
	if loc := abstractMarker.FindStringIndex(text); loc != nil {
		text = text[loc[0]:]
	}
	text = pmidSuffix.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Truncate kürzt Text auf höchstens max Bytes an einer Rune-Grenze.
// max <= 0 bedeutet keine Kürzung.
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
