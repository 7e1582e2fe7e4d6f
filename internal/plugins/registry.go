// Package plugins provides a plugin registry for readers and writers.
package plugins

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mr-aminul/moneylogger/pkg/api"
)

// ReaderPlugin defines the interface for transcript reader plugins.
type ReaderPlugin interface {
	// Name returns the plugin name (e.g., "lines", "gmail").
	Name() string
	// Description returns a human-readable description.
	Description() string
	// RequiredScopes returns the OAuth scopes needed by this plugin.
	RequiredScopes() []string
	// ConfigSchema returns a JSON schema describing the plugin's configuration.
	ConfigSchema() map[string]any
	// NewReader creates a new reader instance with the given config.
	NewReader(httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Reader, error)
}

// WriterPlugin defines the interface for expense writer plugins.
type WriterPlugin interface {
	// Name returns the plugin name (e.g., "sheets", "csv", "json").
	Name() string
	// Description returns a human-readable description.
	Description() string
	// RequiredScopes returns the OAuth scopes needed by this plugin.
	RequiredScopes() []string
	// ConfigSchema returns a JSON schema describing the plugin's configuration.
	ConfigSchema() map[string]any
	// NewWriter creates a new writer instance with the given config.
	NewWriter(httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Writer, error)
}

// ConfigError reports a plugin configuration that does not match the
// plugin's schema or that the plugin rejected.
type ConfigError struct {
	Plugin string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s config: %v", e.Plugin, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Registry manages available reader and writer plugins.
type Registry struct {
	readers map[string]ReaderPlugin
	writers map[string]WriterPlugin
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		readers: make(map[string]ReaderPlugin),
		writers: make(map[string]WriterPlugin),
	}
}

// RegisterReader registers a reader plugin.
func (r *Registry) RegisterReader(plugin ReaderPlugin) error {
	name := plugin.Name()
	if _, exists := r.readers[name]; exists {
		return fmt.Errorf("reader plugin %q already registered", name)
	}
	r.readers[name] = plugin
	return nil
}

// RegisterWriter registers a writer plugin.
func (r *Registry) RegisterWriter(plugin WriterPlugin) error {
	name := plugin.Name()
	if _, exists := r.writers[name]; exists {
		return fmt.Errorf("writer plugin %q already registered", name)
	}
	r.writers[name] = plugin
	return nil
}

// GetReader returns a reader plugin by name.
func (r *Registry) GetReader(name string) (ReaderPlugin, error) {
	plugin, exists := r.readers[name]
	if !exists {
		return nil, fmt.Errorf("reader plugin %q not found", name)
	}
	return plugin, nil
}

// GetWriter returns a writer plugin by name.
func (r *Registry) GetWriter(name string) (WriterPlugin, error) {
	plugin, exists := r.writers[name]
	if !exists {
		return nil, fmt.Errorf("writer plugin %q not found", name)
	}
	return plugin, nil
}

// ListReaders returns all registered reader plugins sorted by name.
func (r *Registry) ListReaders() []ReaderPlugin {
	plugins := make([]ReaderPlugin, 0, len(r.readers))
	for _, plugin := range r.readers {
		plugins = append(plugins, plugin)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name() < plugins[j].Name() })
	return plugins
}

// ListWriters returns all registered writer plugins sorted by name.
func (r *Registry) ListWriters() []WriterPlugin {
	plugins := make([]WriterPlugin, 0, len(r.writers))
	for _, plugin := range r.writers {
		plugins = append(plugins, plugin)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name() < plugins[j].Name() })
	return plugins
}

// GetAllScopes returns the sorted, de-duplicated OAuth scopes required by
// the given reader and writer.
func (r *Registry) GetAllScopes(readerName, writerName string) ([]string, error) {
	reader, err := r.GetReader(readerName)
	if err != nil {
		return nil, err
	}

	writer, err := r.GetWriter(writerName)
	if err != nil {
		return nil, err
	}

	scopeSet := make(map[string]struct{})
	for _, scope := range reader.RequiredScopes() {
		scopeSet[scope] = struct{}{}
	}
	for _, scope := range writer.RequiredScopes() {
		scopeSet[scope] = struct{}{}
	}

	scopes := make([]string, 0, len(scopeSet))
	for scope := range scopeSet {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	return scopes, nil
}

// CreateReader validates config against the plugin schema and creates a reader.
func (r *Registry) CreateReader(name string, httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Reader, error) {
	plugin, err := r.GetReader(name)
	if err != nil {
		return nil, err
	}
	config, err = ValidateConfig(name, plugin.ConfigSchema(), config)
	if err != nil {
		return nil, err
	}
	reader, err := plugin.NewReader(httpClient, config, logger)
	if err != nil {
		return nil, &ConfigError{Plugin: name, Err: err}
	}
	return reader, nil
}

// CreateWriter validates config against the plugin schema and creates a writer.
func (r *Registry) CreateWriter(name string, httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	plugin, err := r.GetWriter(name)
	if err != nil {
		return nil, err
	}
	config, err = ValidateConfig(name, plugin.ConfigSchema(), config)
	if err != nil {
		return nil, err
	}
	writer, err := plugin.NewWriter(httpClient, config, logger)
	if err != nil {
		return nil, &ConfigError{Plugin: name, Err: err}
	}
	return writer, nil
}

// ValidateConfig checks config against schema. An empty config is treated
// as an empty object and returned as such.
func ValidateConfig(plugin string, schema map[string]any, config json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(config)) == 0 {
		config = json.RawMessage(`{}`)
	}

	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s schema: %w", plugin, err)
	}
	url := plugin + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("adding %s schema: %w", plugin, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling %s schema: %w", plugin, err)
	}

	var v any
	if err := json.Unmarshal(config, &v); err != nil {
		return nil, &ConfigError{Plugin: plugin, Err: fmt.Errorf("decoding: %w", err)}
	}
	if err := compiled.Validate(v); err != nil {
		return nil, &ConfigError{Plugin: plugin, Err: err}
	}
	return config, nil
}
