package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TemplateStore holds the localized notification message templates. Templates
// are plain fmt strings loaded from JSON files named by language code
// (e.g. "en.json", "hi.json").
type TemplateStore struct {
	templates map[string]map[string]string
	mu        sync.RWMutex
}

// NewTemplateStore loads every <lang>.json file in the directory.
func NewTemplateStore(path string) (*TemplateStore, error) {
	t := &TemplateStore{
		templates: make(map[string]map[string]string),
	}

	files, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(path, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read template file %s: %w", file.Name(), err)
		}

		var entries map[string]string
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse template file %s: %w", file.Name(), err)
		}

		t.templates[lang] = entries
	}

	return t, nil
}

// Render formats the template for the given key and language. Missing
// languages or keys fall back to English, then to the key itself.
func (t *TemplateStore) Render(lang, key string, args ...interface{}) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tpl := key
	if entries, ok := t.templates[lang]; ok {
		if value, ok := entries[key]; ok {
			tpl = value
		}
	}
	if tpl == key && lang != "en" {
		if entries, ok := t.templates["en"]; ok {
			if value, ok := entries[key]; ok {
				tpl = value
			}
		}
	}

	if len(args) == 0 {
		return tpl
	}
	return fmt.Sprintf(tpl, args...)
}
