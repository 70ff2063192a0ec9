package fileloader

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/jobsensor/internal/config"
)

var _ config.Loader = (*FileLoader)(nil)

// FileLoader loads sensor properties from a YAML mapping on disk, e.g.
//
//	LISTENER_PORT: 9091
//	expiration: 30
type FileLoader struct {
	// path is the filesystem path to the properties file.
	path string
}

// NewFileLoader creates a new FileLoader that will load properties from the
// specified file path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Load reads and parses the file. Scalar values of any YAML type are kept in
// their textual form; nested values are rejected.
func (l *FileLoader) Load(ctx context.Context) (config.Properties, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties file: %w", err)
	}

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}

	props := make(config.Properties, len(raw))
	for name, node := range raw {
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("property %q must be a scalar (line %d)", name, node.Line)
		}
		props[name] = node.Value
	}

	return props, nil
}
