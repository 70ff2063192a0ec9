package monitoring

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ahrav/jobsensor/internal/domain/shared"
)

// Format renders an event's parameters into the representation consumers
// query against.
type Format interface {
	// Name is the registry key, e.g. "CLASSAD".
	Name() string
	// QueryLanguages lists the query languages this output can be matched with.
	QueryLanguages() []string
	// Apply renders params.
	Apply(params Parameters) ([]string, error)
}

var (
	errNilParameters  = errors.New("parameters are nil")
	errMissingPayload = fmt.Errorf("%s list is missing", ParamJobStatus)
)

// ClassAdFormat passes through the pre-rendered ClassAd records.
type ClassAdFormat struct{}

var _ Format = ClassAdFormat{}

func (ClassAdFormat) Name() string             { return "CLASSAD" }
func (ClassAdFormat) QueryLanguages() []string { return []string{"ClassAd"} }

// Apply returns the payload list unchanged.
func (ClassAdFormat) Apply(params Parameters) ([]string, error) {
	if params == nil {
		return nil, shared.NewConfigurationError("classad apply", errNilParameters)
	}

	payload, ok := params[ParamJobStatus].([]string)
	if !ok || payload == nil {
		return nil, shared.NewDataError("classad apply", errMissingPayload)
	}
	return payload, nil
}

// Registry maps format names to formats and tracks the default one.
// It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	formats     map[string]Format
	defaultName string
}

// NewRegistry registers formats in order; the first becomes the default.
func NewRegistry(formats ...Format) (*Registry, error) {
	r := &Registry{formats: make(map[string]Format, len(formats))}
	for _, f := range formats {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns a registry whose default is the ClassAd format.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry(ClassAdFormat{})
	return r
}

func key(name string) string { return strings.ToUpper(strings.TrimSpace(name)) }

// Register adds f. Names are case-insensitive and must be unique.
func (r *Registry) Register(f Format) error {
	if f == nil {
		return errors.New("format is nil")
	}
	k := key(f.Name())
	if k == "" {
		return errors.New("format name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formats[k]; exists {
		return fmt.Errorf("format %q already registered", f.Name())
	}
	r.formats[k] = f
	if r.defaultName == "" {
		r.defaultName = k
	}
	return nil
}

// Lookup returns the format registered under name.
func (r *Registry) Lookup(name string) (Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[key(name)]
	return f, ok
}

// ForQueryLanguage returns the first registered format (by name) that
// supports lang.
func (r *Registry) ForQueryLanguage(lang string) (Format, bool) {
	for _, name := range r.Names() {
		f, _ := r.Lookup(name)
		if slices.ContainsFunc(f.QueryLanguages(), func(l string) bool { return strings.EqualFold(l, lang) }) {
			return f, true
		}
	}
	return nil, false
}

// SetDefault makes the named format the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(name)
	if _, ok := r.formats[k]; !ok {
		return fmt.Errorf("format %q not registered", name)
	}
	r.defaultName = k
	return nil
}

// Default returns the default format, or nil when the registry is empty.
func (r *Registry) Default() Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.formats[r.defaultName]
}

// Names returns the registered format names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for k := range r.formats {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
