// Package registry holds named schemas for the codec service: register a
// .proto source under a name, look up its messages, and optionally keep a
// schema directory loaded and watched for changes.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/axonops/protodyn/internal/cache"
	"github.com/axonops/protodyn/internal/metrics"
	"github.com/axonops/protodyn/internal/schema"
)

// Common errors
var (
	ErrSchemaNotFound  = errors.New("schema not found")
	ErrMessageNotFound = errors.New("message not found")
)

// Entry is one registered schema.
type Entry struct {
	Name         string
	Source       string
	Fingerprint  string
	Schema       *schema.Schema
	RegisteredAt time.Time
}

// Registry is an in-memory named-schema store. Parsed schemas are shared
// through a fingerprint-keyed LRU cache, so re-registering identical
// sources is cheap.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	cache      *cache.SchemaCache
	metrics    *metrics.Metrics
	logger     *slog.Logger
	importPath string
	remoteBase string
}

// Option configures the registry.
type Option func(*Registry)

// WithMetrics attaches a metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithImportPath sets the local import search path for parsed schemas.
func WithImportPath(path string) Option {
	return func(r *Registry) { r.importPath = path }
}

// WithRemoteBase overrides the remote import URL prefix.
func WithRemoteBase(base string) Option {
	return func(r *Registry) { r.remoteBase = base }
}

// WithCache replaces the default schema cache.
func WithCache(c *cache.SchemaCache) Option {
	return func(r *Registry) { r.cache = c }
}

// New creates a registry.
func New(logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*Entry),
		cache:   cache.NewSchemaCache(256, time.Hour),
		logger:  logger,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register parses source and stores it under name, replacing any previous
// registration with that name.
func (r *Registry) Register(name, source string) (*Entry, error) {
	parsed, err := r.parse(source)
	if err != nil {
		return nil, fmt.Errorf("schema %q: %w", name, err)
	}

	entry := &Entry{
		Name:         name,
		Source:       source,
		Fingerprint:  schema.Fingerprint(source),
		Schema:       parsed,
		RegisteredAt: time.Now(),
	}

	r.mu.Lock()
	r.entries[name] = entry
	count := len(r.entries)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.UpdateSchemaCount(float64(count))
	}
	r.logger.Info("schema registered",
		slog.String("name", name),
		slog.String("fingerprint", entry.Fingerprint[:12]),
	)
	return entry, nil
}

func (r *Registry) parse(source string) (*schema.Schema, error) {
	fingerprint := schema.Fingerprint(source)
	if parsed, ok := r.cache.Get(fingerprint); ok {
		if r.metrics != nil {
			r.metrics.RecordCacheAccess("schema", true)
		}
		return parsed, nil
	}
	if r.metrics != nil {
		r.metrics.RecordCacheAccess("schema", false)
	}

	start := time.Now()
	imp := schema.NewImporter(r.importPath)
	imp.RemoteBase = r.remoteBase
	parsed, err := schema.ParseWithImporter(source, imp)
	if r.metrics != nil {
		r.metrics.RecordParse(time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	r.cache.Set(fingerprint, parsed)
	return parsed, nil
}

// Get returns a registered schema entry.
func (r *Registry) Get(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}
	return entry, nil
}

// Message resolves a message definition inside a registered schema.
func (r *Registry) Message(schemaName, messageName string) (*schema.MessageDef, error) {
	entry, err := r.Get(schemaName)
	if err != nil {
		return nil, err
	}
	def, ok := entry.Schema.Message(messageName)
	if !ok {
		return nil, fmt.Errorf("%w: %q in schema %q", ErrMessageNotFound, messageName, schemaName)
	}
	return def, nil
}

// Delete removes a registration.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}
	delete(r.entries, name)
	if r.metrics != nil {
		r.metrics.UpdateSchemaCount(float64(len(r.entries)))
	}
	return nil
}

// Names returns the registered schema names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// LoadDirectory registers every .proto file in dir, named by file stem.
func (r *Registry) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read schema directory: %w", err)
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".proto") {
			continue
		}
		path := filepath.Join(dir, de.Name())
		// #nosec G304 -- path is under the configured schema directory
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		name := strings.TrimSuffix(de.Name(), ".proto")
		if _, err := r.Register(name, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// Watch re-registers schemas when .proto files under dir change. It
// blocks until the context is cancelled; parse failures are logged and
// leave the previous registration in place.
func (r *Registry) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	r.logger.Info("watching schema directory", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".proto") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			data, err := os.ReadFile(event.Name)
			if err != nil {
				r.logger.Warn("failed to read changed schema",
					slog.String("file", event.Name),
					slog.String("error", err.Error()),
				)
				continue
			}
			name := strings.TrimSuffix(filepath.Base(event.Name), ".proto")
			if _, err := r.Register(name, string(data)); err != nil {
				r.logger.Warn("failed to reload schema",
					slog.String("file", event.Name),
					slog.String("error", err.Error()),
				)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("schema watcher error", slog.String("error", err.Error()))
		}
	}
}
