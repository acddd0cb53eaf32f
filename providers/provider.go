package providers

import (
	"context"

	"rss-digest/config"
	"rss-digest/models"
)

// Provider ist das Interface, das jeder Feed-Provider implementieren muss.
type Provider interface {
	// Fetch holt den Feed einer Quelle und gibt die normalisierten
	// Kandidaten-Einträge in Feed-Reihenfolge zurück.
	Fetch(ctx context.Context, source config.FeedSource) ([]*models.Entry, error)

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "rss").
	Name() string
}
