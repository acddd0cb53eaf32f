package services

import (
	"context"

	"go.uber.org/zap"

	"rss-digest/config"
	"rss-digest/models"
	"rss-digest/providers"
)

// EntryStore ist der Vertrag, den der Sync gegen den Datastore braucht.
type EntryStore interface {
	LoadExisting(ctx context.Context, source string) (map[string]*models.Entry, error)
	InsertNew(ctx context.Context, entries []*models.Entry) int
	UpdateDOI(ctx context.Context, entry *models.Entry) error
}

// Result fasst einen kompletten Lauf über alle Quellen zusammen.
type Result struct {
	Inserted      int
	Updated       int
	SourcesOK     int
	SourcesFailed int
}

// SyncService orchestriert den Abgleich: Feed holen, Bestand laden,
// klassifizieren, neue Einträge anreichern, persistieren. Quellen werden
// strikt sequenziell verarbeitet; ein Fehler in einer Quelle verhindert nie
// die Verarbeitung der folgenden.
type SyncService struct {
	Config   *config.Config
	Sources  []config.FeedSource
	Provider providers.Provider
	Store    EntryStore
	Enricher *Enricher
	Recon    *Reconciler
	Logger   *zap.Logger
}

// NewSyncService erstellt eine neue Instanz des SyncService.
func NewSyncService(cfg *config.Config, sources []config.FeedSource, provider providers.Provider,
	store EntryStore, enricher *Enricher, logger *zap.Logger) *SyncService {
	return &SyncService{
		Config:   cfg,
		Sources:  sources,
		Provider: provider,
		Store:    store,
		Enricher: enricher,
		Recon:    NewReconciler(logger),
		Logger:   logger,
	}
}

// RunAll führt den Abgleich für alle konfigurierten Quellen aus.
func (s *SyncService) RunAll(ctx context.Context) Result {
	var total Result
	for _, src := range s.Sources {
		inserted, updated, err := s.RunSource(ctx, src)
		if err != nil {
			s.Logger.Error("Quelle übersprungen", zap.String("source", src.Name), zap.Error(err))
			total.SourcesFailed++
			continue
		}
		total.Inserted += inserted
		total.Updated += updated
		total.SourcesOK++
	}
	s.Logger.Info("Lauf abgeschlossen",
		zap.Int("inserted", total.Inserted),
		zap.Int("updated", total.Updated),
		zap.Int("sources_ok", total.SourcesOK),
		zap.Int("sources_failed", total.SourcesFailed))
	return total
}

// RunSource führt den Abgleich für genau eine Quelle aus.
func (s *SyncService) RunSource(ctx context.Context, src config.FeedSource) (inserted, updated int, err error) {
	log := s.Logger.With(zap.String("source", src.Name))
	log.Info("Starte Abgleich für Quelle", zap.String("url", src.URL))

	candidates, err := s.Provider.Fetch(ctx, src)
	if err != nil {
		return 0, 0, err
	}

	existing, err := s.Store.LoadExisting(ctx, src.Name)
	if err != nil {
		return 0, 0, err
	}

	plan := s.Recon.Reconcile(src.Name, candidates, existing)

	if len(plan.ToInsert) > 0 {
		s.Enricher.EnrichAll(ctx, plan.ToInsert)
		inserted = s.Store.InsertNew(ctx, plan.ToInsert)
	}

	for _, entry := range plan.ToUpdate {
		if err := s.Store.UpdateDOI(ctx, entry); err != nil {
			log.Error("DOI-Update fehlgeschlagen",
				zap.String("pmid", entry.PMID),
				zap.String("doi", entry.DOI),
				zap.Error(err))
			continue
		}
		updated++
	}

	log.Info("Quelle verarbeitet", zap.Int("inserted", inserted), zap.Int("updated", updated))
	return inserted, updated, nil
}
