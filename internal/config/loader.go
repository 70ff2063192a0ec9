package config

import (
	"context"
	"fmt"
)

// Loader provides configuration loading capabilities. It abstracts the source
// of configuration to allow for different implementations like files, environment
// variables, or remote configuration services.
type Loader interface {
	// Load retrieves the properties from the underlying source. Properties the
	// source does not define are absent from the result.
	Load(ctx context.Context) (Properties, error)
}

// LoaderFunc adapts a function to a Loader.
type LoaderFunc func(ctx context.Context) (Properties, error)

func (f LoaderFunc) Load(ctx context.Context) (Properties, error) { return f(ctx) }

// StaticLoader returns fixed properties. Hosts that already hold a property
// list use it directly.
func StaticLoader(p Properties) Loader {
	return LoaderFunc(func(context.Context) (Properties, error) { return p.Clone(), nil })
}

// MultiLoader layers loaders in order; later loaders override earlier ones.
type MultiLoader struct {
	loaders []Loader
}

// NewMultiLoader creates a MultiLoader. Nil loaders are skipped.
func NewMultiLoader(loaders ...Loader) *MultiLoader {
	ml := &MultiLoader{}
	for _, l := range loaders {
		if l != nil {
			ml.loaders = append(ml.loaders, l)
		}
	}
	return ml
}

// Load starts from DefaultProperties and applies each loader in turn.
func (m *MultiLoader) Load(ctx context.Context) (Properties, error) {
	props := DefaultProperties()
	for i, l := range m.loaders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layer, err := l.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loader %d: %w", i, err)
		}
		props = props.Merge(layer)
	}
	return props, nil
}
