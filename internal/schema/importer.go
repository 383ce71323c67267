package schema

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DefaultRemoteBase is the URL prefix remote imports resolve against when
// a file is neither on the local search path nor a built-in.
const DefaultRemoteBase = "https://raw.githubusercontent.com/protocolbuffers/protobuf/master/src/"

// Fetcher retrieves remote import content. It is the single I/O point of
// the engine and the only call that may block.
type Fetcher interface {
	Fetch(url string) ([]byte, error)
}

// HTTPFetcher fetches imports over HTTP.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch performs a GET and returns the response body.
func (f *HTTPFetcher) Fetch(url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// Importer loads imported .proto files: from the local search path first,
// then from the built-in well-known definitions, then from the remote
// base. Fetched content is cached per importable path, and a visited set
// breaks import cycles.
type Importer struct {
	// ImportPath is the local directory searched before any fallback.
	ImportPath string

	// RemoteBase overrides DefaultRemoteBase when set.
	RemoteBase string

	// Fetcher overrides the HTTP transport, mainly for tests.
	Fetcher Fetcher

	cache   map[string][]byte
	visited map[string]bool
}

// NewImporter creates an importer with the given local search path.
func NewImporter(importPath string) *Importer {
	return &Importer{
		ImportPath: importPath,
		cache:      make(map[string][]byte),
		visited:    make(map[string]bool),
	}
}

// load resolves one import statement on behalf of parent.
//
// Visibility rule: at import level > 0 a non-public import is not
// re-exported into the parent schema; public imports always are.
func (imp *Importer) load(parent *Schema, importable string, public bool, level int) error {
	if !public && level > 0 {
		return nil
	}
	canonical := path.Clean(importable)
	if imp.visited[canonical] {
		return nil
	}
	imp.visited[canonical] = true
	defer delete(imp.visited, canonical)

	content, err := imp.content(importable)
	if err != nil {
		return err
	}

	imported, err := parseLevel(string(content), imp, level+1)
	if err != nil {
		return fmt.Errorf("import %q: %w", importable, err)
	}
	mergeImported(parent, imported, importable)
	return nil
}

func (imp *Importer) content(importable string) ([]byte, error) {
	if cached, ok := imp.cache[importable]; ok {
		return cached, nil
	}

	if imp.ImportPath != "" {
		data, err := os.ReadFile(filepath.Join(imp.ImportPath, filepath.FromSlash(importable)))
		if err == nil {
			imp.cache[importable] = data
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("import %q: %w", importable, err)
		}
	}

	if builtin, ok := wellKnownImports[importable]; ok {
		data := []byte(builtin)
		imp.cache[importable] = data
		return data, nil
	}

	base := imp.RemoteBase
	if base == "" {
		base = DefaultRemoteBase
	}
	fetcher := imp.Fetcher
	if fetcher == nil {
		fetcher = &HTTPFetcher{}
	}
	data, err := fetcher.Fetch(base + importable)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrImportNotFound, importable, err)
	}
	imp.cache[importable] = data
	return data, nil
}

// mergeImported places the imported definitions into the parent schema.
// Every message and enum registers under its dotted path (derived from
// the import's directory, e.g. "google.protobuf.Timestamp") and under its
// simple name, so both reference styles resolve.
func mergeImported(parent, imported *Schema, importable string) {
	folder := strings.ReplaceAll(path.Dir(importable), "/", ".")
	if folder == "." {
		folder = ""
	}

	for name, m := range imported.messages {
		if folder != "" && !strings.Contains(name, ".") {
			parent.messages[folder+"."+name] = m
		}
		if _, exists := parent.messages[name]; !exists {
			parent.messages[name] = m
		}
	}
	for name, e := range imported.enums {
		if folder != "" && !strings.Contains(name, ".") {
			parent.enums[folder+"."+name] = e
		}
		if _, exists := parent.enums[name]; !exists {
			parent.enums[name] = e
		}
	}
}
