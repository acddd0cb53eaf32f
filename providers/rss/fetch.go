package rss

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"rss-digest/config"
	"rss-digest/models"
)

// CustomTransport fügt jeder Anfrage einen User-Agent-Header hinzu.
type CustomTransport struct {
	Transport http.RoundTripper
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	return t.Transport.RoundTrip(req)
}

// httpClient wird für alle Feed-Abfragen in diesem Provider verwendet.
var httpClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &CustomTransport{
		Transport: http.DefaultTransport,
	},
}

// doiRegex findet eine DOI im rohen Feed-HTML (z.B. "doi: 10.1038/s41586-...").
var doiRegex = regexp.MustCompile(`\b10\.\d{4,9}/[-._;()/:A-Za-z0-9]+`)

// Fetcher holt und normalisiert RSS/Atom-Feeds zu Entry-Kandidaten.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	parser *gofeed.Parser
	client *http.Client
	now    func() time.Time
}

// NewFetcher erstellt eine neue Instanz des RSS-Fetchers.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		parser: gofeed.NewParser(),
		client: httpClient,
		now:    time.Now,
	}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "rss"
}

// Fetch lädt den Feed einer Quelle und normalisiert jedes Item zu einem Entry.
// Die Reihenfolge entspricht der Feed-Reihenfolge, nicht zwingend chronologisch.
func (f *Fetcher) Fetch(ctx context.Context, source config.FeedSource) ([]*models.Entry, error) {
	log := f.Logger.With(zap.String("source", source.Name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed fetch returned status %d", resp.StatusCode)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("feed parse failed: %w", err)
	}

	log.Info("Feed geladen",
		zap.String("feed_title", feed.Title),
		zap.String("feed_link", feed.Link),
		zap.String("feed_updated", feed.Updated),
		zap.Int("items", len(feed.Items)))

	entries := make([]*models.Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entries = append(entries, f.normalizeItem(source.Name, item))
	}
	return entries, nil
}

// normalizeItem baut aus einem Feed-Item einen Entry-Kandidaten.
func (f *Fetcher) normalizeItem(source string, item *gofeed.Item) *models.Entry {
	raw := item.Content
	if raw == "" {
		raw = item.Description
	}

	return &models.Entry{
		Source:      source,
		Title:       strings.TrimSpace(item.Title),
		Link:        item.Link,
		Published:   f.publishedOf(item),
		FullContent: htmlToText(raw),
		PMID:        pmidFromGUID(item.GUID),
		DOI:         doiFromHTML(raw),
	}
}

// publishedOf liefert den Publikationszeitpunkt als ISO-8601-String.
// Fehlt er im Feed, wird die aktuelle Zeit eingesetzt.
func (f *Fetcher) publishedOf(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if s := strings.TrimSpace(item.Published); s != "" {
		return s
	}
	return f.now().UTC().Format(time.RFC3339)
}

// pmidFromGUID extrahiert die PMID aus dem GUID-Suffix nach dem letzten
// Doppelpunkt (z.B. "pubmed:38412345" -> "38412345").
func pmidFromGUID(guid string) string {
	guid = strings.TrimSpace(guid)
	if guid == "" {
		return ""
	}
	if idx := strings.LastIndex(guid, ":"); idx >= 0 {
		return strings.TrimSpace(guid[idx+1:])
	}
	return guid
}

// doiFromHTML sucht im rohen Content-HTML nach einer DOI.
func doiFromHTML(raw string) string {
	doi := doiRegex.FindString(raw)
	// Satzzeichen am Ende gehören nicht zur DOI
	return strings.TrimRight(doi, ".,;)")
}

// htmlToText extrahiert reinen Text aus Feed-HTML.
func htmlToText(raw string) string {
	if raw == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
