package template

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed telegram/*
var templateFS embed.FS

// Type represents the type of notification template
type Type string

const (
	Telegram Type = "telegram"
)

// IPChange is the template name used for address change messages
const IPChange = "ip_change"

// Loader manages notification templates
type Loader struct {
	logger     *zap.Logger
	templates  map[Type]*template.Template
	customTpls map[Type]map[string]*template.Template
	mu         sync.RWMutex
}

// NewLoader creates new template loader
func NewLoader(logger *zap.Logger) (*Loader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loader := &Loader{
		logger:     logger,
		templates:  make(map[Type]*template.Template),
		customTpls: make(map[Type]map[string]*template.Template),
	}

	if err := loader.loadDefaultTemplates(); err != nil {
		return nil, err
	}

	return loader, nil
}

// loadDefaultTemplates loads templates from embedded filesystem
func (t *Loader) loadDefaultTemplates() error {
	for _, tplType := range []Type{Telegram} {
		pattern := string(tplType)
		tmpl := template.New("").Funcs(templateFuncs)

		entries, err := templateFS.ReadDir(pattern)
		if err != nil {
			return fmt.Errorf("failed to read template directory: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			content, err := templateFS.ReadFile(pattern + "/" + entry.Name())
			if err != nil {
				return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
			}

			name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
			if _, err := tmpl.New(name).Parse(string(content)); err != nil {
				return fmt.Errorf("failed to parse template %s: %w", entry.Name(), err)
			}
		}

		t.templates[tplType] = tmpl
	}

	return nil
}

// SetCustomTemplate overrides a default template. The content is parsed
// immediately so mistakes surface at startup.
func (t *Loader) SetCustomTemplate(tplType Type, name, content string) error {
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(content)
	if err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.customTpls[tplType]; !ok {
		t.customTpls[tplType] = make(map[string]*template.Template)
	}
	t.customTpls[tplType][name] = tmpl
	return nil
}

// GetTemplate returns the template for given type and name
func (t *Loader) GetTemplate(tplType Type, name string) (*template.Template, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	// Check custom templates first
	if tmpl, ok := t.customTpls[tplType][name]; ok {
		return tmpl, nil
	}

	// Fall back to default template
	if tmpl, ok := t.templates[tplType]; ok {
		if t := tmpl.Lookup(name); t != nil {
			return t, nil
		}
	}

	return nil, fmt.Errorf("template not found: %s/%s", tplType, name)
}

// Render executes the named template with data
func (t *Loader) Render(tplType Type, name string, data any) (string, error) {
	tmpl, err := t.GetTemplate(tplType, name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s/%s: %w", tplType, name, err)
	}
	return buf.String(), nil
}

// Template functions available in all templates
var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		return t.Format(time.RFC3339)
	},
	"title": func(s string) string {
		return cases.Title(language.Und).String(s)
	},
	"upper": func(s string) string {
		return cases.Upper(language.Und).String(s)
	},
}
