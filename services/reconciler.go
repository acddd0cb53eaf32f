package services

import (
	"go.uber.org/zap"

	"rss-digest/models"
)

// Classification beschreibt das Abgleich-Ergebnis für einen Kandidaten.
type Classification string

const (
	ClassNew       Classification = "new"
	ClassDOIUpdate Classification = "doi_update"
	ClassUnchanged Classification = "unchanged"
)

// Plan ist das Ergebnis eines Abgleichs für eine Quelle: neue Einträge, die
// noch durch die Anreicherung laufen müssen, und bestehende Einträge, deren
// DOI nachgetragen wird. Der Schlüssel (source, pmid) kollidiert nie
// zwischen beiden Mengen.
type Plan struct {
	ToInsert []*models.Entry
	ToUpdate []*models.Entry
}

// Reconciler gleicht frisch geholte Kandidaten mit dem gespeicherten Bestand
// einer Quelle ab. Er hält keinen Zustand über einen Lauf hinaus.
type Reconciler struct {
	Logger *zap.Logger
}

// NewReconciler erstellt einen neuen Reconciler.
func NewReconciler(logger *zap.Logger) *Reconciler {
	return &Reconciler{Logger: logger}
}

// Reconcile klassifiziert jeden Kandidaten anhand seiner PMID-Zugehörigkeit
// zum Bestand:
//
//   - PMID unbekannt  -> NEW, kommt in den Insert-Batch
//   - PMID bekannt und Kandidaten-DOI nicht leer und abweichend (auch bei
//     bisher leerer DOI) -> DOI-UPDATE, nur das DOI-Feld wird mutiert
//   - sonst -> UNCHANGED, Kandidat wird verworfen
//
// Kandidaten ohne PMID können nicht geschlüsselt werden und werden mit
// Log-Zeile übersprungen. Bei doppelten PMIDs innerhalb eines Batches
// gewinnt der erste Kandidat. Ein zweiter Lauf mit identischem Feed-Inhalt
// erzeugt dadurch weder Inserts noch Updates.
func (r *Reconciler) Reconcile(source string, candidates []*models.Entry, existing map[string]*models.Entry) Plan {
	log := r.Logger.With(zap.String("source", source))

	var plan Plan
	seen := make(map[string]bool, len(candidates))

	for _, cand := range candidates {
		if cand.PMID == "" {
			log.Warn("Kandidat ohne PMID übersprungen", zap.String("title", cand.Title), zap.String("link", cand.Link))
			continue
		}
		if seen[cand.PMID] {
			log.Debug("Doppelte PMID im Feed, erster Kandidat gewinnt", zap.String("pmid", cand.PMID))
			continue
		}
		seen[cand.PMID] = true

		stored, ok := existing[cand.PMID]
		if !ok {
			cand.Source = source
			plan.ToInsert = append(plan.ToInsert, cand)
			continue
		}

		if cand.DOI != "" && cand.DOI != stored.DOI {
			log.Info("DOI-Nachtrag erkannt",
				zap.String("pmid", cand.PMID),
				zap.String("old_doi", stored.DOI),
				zap.String("new_doi", cand.DOI))
			stored.DOI = cand.DOI
			plan.ToUpdate = append(plan.ToUpdate, stored)
			continue
		}
		// UNCHANGED: nichts zu tun
	}

	log.Info("Abgleich abgeschlossen",
		zap.Int("candidates", len(candidates)),
		zap.Int("new", len(plan.ToInsert)),
		zap.Int("doi_updates", len(plan.ToUpdate)),
		zap.Int("existing", len(existing)))

	return plan
}
