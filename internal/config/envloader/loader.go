// Package envloader reads sensor properties from the process environment.
package envloader

import (
	"context"
	"strings"
	"unicode"

	"github.com/spf13/viper"

	"github.com/ahrav/jobsensor/internal/config"
)

// DefaultPrefix namespaces the sensor's environment variables.
const DefaultPrefix = "JOBSENSOR"

var _ config.Loader = (*EnvLoader)(nil)

// EnvLoader maps each known property to PREFIX_UPPER_SNAKE_NAME, so
// executionDelay is read from JOBSENSOR_EXECUTION_DELAY.
type EnvLoader struct {
	v     *viper.Viper
	names []string
}

// New creates an EnvLoader for the given property names, or every known
// property when names is empty.
func New(prefix string, names ...string) *EnvLoader {
	if len(names) == 0 {
		names = config.KnownProperties
	}

	v := viper.New()
	for _, name := range names {
		// BindEnv with an explicit variable name never fails.
		_ = v.BindEnv(name, EnvName(prefix, name))
	}
	return &EnvLoader{v: v, names: names}
}

// Load returns the properties whose variables are set.
func (l *EnvLoader) Load(ctx context.Context) (config.Properties, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	props := config.Properties{}
	for _, name := range l.names {
		if l.v.IsSet(name) {
			props[name] = l.v.GetString(name)
		}
	}
	return props, nil
}

// EnvName returns the variable a property is read from.
func EnvName(prefix, name string) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(strings.ToUpper(prefix))
		b.WriteByte('_')
	}
	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
