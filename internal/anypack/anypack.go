// Package anypack serializes arbitrary Go values into the value field of
// google.protobuf.Any through a pluggable backend. Two backends ship: the
// structural "pickle" form (attribute table walked in sorted order, each
// value gob-encoded behind a type-name prefix) and the "jsonpickle" form
// (a JSON document carrying a type tag).
package anypack

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
)

// Common errors
var (
	ErrUnsupportedBackend = errors.New("unsupported packing backend")
	ErrUnpackable         = errors.New("object is not packable")
)

// Backend packs a host object into bytes and back. The structural form
// produced by one backend is not expected to be readable by another;
// round-tripping is a per-backend property.
type Backend interface {
	// Name returns the selector this backend registers under.
	Name() string

	// Pack serializes obj.
	Pack(obj any) ([]byte, error)

	// Unpack restores a previously packed object into target, which must
	// be a pointer to the object's type. The target's constructor is not
	// involved; attributes are assigned directly.
	Unpack(data []byte, target any) error
}

var (
	backendMu sync.RWMutex
	backends  = map[string]Backend{}
	active    = "pickle"
)

func init() {
	RegisterBackend(&structuralBackend{})
	RegisterBackend(&jsonBackend{})
}

// RegisterBackend makes a backend selectable by name.
func RegisterBackend(b Backend) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backends[b.Name()] = b
}

// SetBackend selects the process-wide default backend by name.
func SetBackend(name string) error {
	backendMu.Lock()
	defer backendMu.Unlock()
	if _, ok := backends[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, name)
	}
	active = name
	return nil
}

// ActiveBackend returns the currently selected backend.
func ActiveBackend() Backend {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backends[active]
}

// BackendByName returns a registered backend.
func BackendByName(name string) (Backend, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, name)
	}
	return b, nil
}

// Any models google.protobuf.Any: a type URL plus opaque bytes holding a
// packed object. The type URL is assigned when the Any is stored into an
// enclosing message field, not at Pack time.
type Any struct {
	TypeURL string
	Value   []byte
}

// Pack serializes obj through the active backend.
func Pack(obj any) (*Any, error) {
	return PackWith(ActiveBackend(), obj)
}

// PackWith serializes obj through an explicit backend.
func PackWith(b Backend, obj any) (*Any, error) {
	value, err := b.Pack(obj)
	if err != nil {
		return nil, err
	}
	return &Any{Value: value}, nil
}

// Unpack restores the packed object into target using the active backend.
func (a *Any) Unpack(target any) error {
	return a.UnpackWith(ActiveBackend(), target)
}

// UnpackWith restores the packed object through an explicit backend.
func (a *Any) UnpackWith(b Backend, target any) error {
	return b.Unpack(a.Value, target)
}

// Equal reports whether two Any values carry the same type URL and bytes.
func (a *Any) Equal(o *Any) bool {
	if a == nil || o == nil {
		return a == o
	}
	return a.TypeURL == o.TypeURL && bytes.Equal(a.Value, o.Value)
}
