package sqltpl

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

// Renderer is the central controller for the SQL templating engine. It
// manages the template set loaded from an optional template directory, the
// function map, and the configuration. Rendering never mutates the shared
// template set: every render executes against a fresh clone, so all methods
// are concurrent-safe.
type Renderer struct {
	logger        *slog.Logger
	config        *Config
	templates     *template.Template
	clean         *template.Template
	templateNames []string
	funcMap       template.FuncMap
	templateDir   string
	mu            sync.RWMutex
}

// NewRenderer creates, initializes, and returns a new Renderer. A nil logger
// discards all output and a nil config uses DefaultConfig. templateDir may
// be empty, in which case only inline templates can be rendered; otherwise
// it is scanned for "*.tmpl.sql" statement templates and "*.part.sql"
// partials. It performs an initial Refresh to load the template set.
func NewRenderer(logger *slog.Logger, config *Config, templateDir string) (*Renderer, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config == nil {
		config = DefaultConfig()
	}

	r := &Renderer{
		logger:      logger,
		config:      config,
		templateDir: templateDir,
	}
	r.funcMap = r.makeFuncMap()

	if err := r.Refresh(); err != nil {
		return nil, err
	}

	logger.Info("SQL renderer initialized")
	return r, nil
}

func (r *Renderer) makeFuncMap() template.FuncMap {
	return template.FuncMap{
		checkFuncName: checkValue,
		"bind":        bindStub,
		"raw":         rawFunc,
		"ident":       identFunc,
		"idents":      identsFunc,
		"comma":       commaFunc,
	}
}

// SetConfig applies a new configuration to the Renderer. This allows safety
// limits to be adjusted without rebuilding the template set.
func (r *Renderer) SetConfig(config *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = config
}

// GetConfig returns a copy of the current configuration.
// This mainly exists for concurrency-safety reasons.
func (r *Renderer) GetConfig() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *r.config
}

// Refresh reloads all templates from the template directory. This allows
// statement templates to be updated without restarting the application.
// With no template directory configured it resets to an empty set.
func (r *Renderer) Refresh() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var parsed *template.Template
	var names []string

	if r.templateDir == "" {
		parsed = template.New("").Funcs(r.funcMap)
	} else {
		filePattern := filepath.Join(r.templateDir, "*.tmpl.sql")
		r.logger.Info("Loading statement templates...")

		var err error
		parsed, err = template.New("").Funcs(r.funcMap).ParseGlob(filePattern)
		if err != nil {
			if !strings.Contains(err.Error(), "pattern matches no files") {
				r.logger.Error("failed to parse statement templates", "error", err)
				return err
			}
			// No template files, so we have to create the object without any
			parsed = template.New("").Funcs(r.funcMap)
		} else {
			for _, t := range parsed.Templates() {
				if strings.Contains(t.Name(), ".tmpl.sql") {
					names = append(names, t.Name())
				}
			}
		}

		filePattern = filepath.Join(r.templateDir, "*.part.sql")
		newParsed, err := parsed.ParseGlob(filePattern)
		if err != nil {
			if !strings.Contains(err.Error(), "pattern matches no files") {
				r.logger.Error("failed to parse partial templates", "error", err)
				return err
			}
			newParsed = parsed
		}
		parsed = newParsed

		if len(names) == 0 {
			r.logger.Warn("No statement templates found", "dir", r.templateDir)
		}
	}

	// Install the interpolation safety check on every loaded tree before
	// any clone can be taken.
	for _, t := range parsed.Templates() {
		rewriteTree(t.Tree)
	}

	r.templates = parsed
	r.templateNames = names

	// Create a clean clone for inline executions after all parsing is complete.
	clean, err := r.templates.Clone()
	if err != nil {
		r.logger.Error("failed to create a clean clone of templates", "error", err)
		return err
	}
	r.clean = clean

	r.logger.Info("Loaded statement templates", "count", len(names))
	return nil
}

// TemplateNames returns the names of the loaded statement templates.
func (r *Renderer) TemplateNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.templateNames))
	copy(names, r.templateNames)
	return names
}

// TemplateDir returns the template directory the Renderer reads from.
func (r *Renderer) TemplateDir() string {
	return r.templateDir
}

// Render parses and executes an inline SQL template with the given
// parameters and returns the resulting Statement. The parameter map is
// copied before rendering, so bind placeholders generated by the template
// and list expansion never mutate the caller's map.
func (r *Renderer) Render(text string, params map[string]any) (Statement, error) {
	r.mu.RLock()
	clean := r.clean
	config := r.config
	r.mu.RUnlock()

	if len(text) > config.MaxTemplateSize {
		return Statement{}, fmt.Errorf("template of %d bytes exceeds the %d byte limit", len(text), config.MaxTemplateSize)
	}

	state := newRenderState(config, params)

	// Clone the clean, unexecuted template set to avoid race conditions and
	// execution state issues, then install the per-render bind function.
	set, err := clean.Clone()
	if err != nil {
		return Statement{}, fmt.Errorf("failed to clone clean templates for render: %w", err)
	}
	set = set.Funcs(state.funcs())

	t, err := set.Parse(text)
	if err != nil {
		return Statement{}, fmt.Errorf("failed to parse sql template: %w", err)
	}

	// The inline text may define additional templates; all new trees need
	// the safety rewrite. Already-rewritten trees are skipped.
	for _, tt := range set.Templates() {
		rewriteTree(tt.Tree)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, state.params); err != nil {
		return Statement{}, err
	}

	return finishRender(buf.String(), state, config)
}

// RenderNamed executes a statement template loaded from the template
// directory by name and returns the resulting Statement.
func (r *Renderer) RenderNamed(name string, params map[string]any) (Statement, error) {
	r.mu.RLock()
	clean := r.clean
	config := r.config
	r.mu.RUnlock()

	if clean.Lookup(name) == nil {
		return Statement{}, fmt.Errorf("unknown sql template %q", name)
	}

	state := newRenderState(config, params)

	set, err := clean.Clone()
	if err != nil {
		return Statement{}, fmt.Errorf("failed to clone clean templates for render: %w", err)
	}
	set = set.Funcs(state.funcs())

	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, name, state.params); err != nil {
		return Statement{}, err
	}

	return finishRender(buf.String(), state, config)
}

func finishRender(query string, state *renderState, config *Config) (Statement, error) {
	query, params, err := expandListParams(query, state.params, config.MaxListExpansion)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Query: query, Params: params}, nil
}
