package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// FeedSource ist eine benannte Feed-URL. Der Name ist der stabile Schlüssel
// einer Quelle über alle Läufe hinweg.
type FeedSource struct {
	Name string
	URL  string
}

// LoadSources liest die RSS-Quellen aus einer JSON-Datei (Name -> URL).
// Fehlende oder ungültige Dateien sind fatale Startfehler und werden an den
// Aufrufer gemeldet. Die Quellen werden nach Namen sortiert zurückgegeben,
// damit die Verarbeitungsreihenfolge deterministisch ist.
func LoadSources(path string) ([]FeedSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sources file %s not readable: %w", path, err)
	}

	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("sources file %s contains invalid JSON: %w", path, err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("sources file %s defines no sources", path)
	}

	sources := make([]FeedSource, 0, len(m))
	for name, url := range m {
		if url == "" {
			return nil, fmt.Errorf("source %q has an empty feed URL", name)
		}
		sources = append(sources, FeedSource{Name: name, URL: url})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources, nil
}
