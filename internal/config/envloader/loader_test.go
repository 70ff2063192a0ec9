package envloader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/jobsensor/internal/config"
)

func TestEnvName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "JOBSENSOR_LISTENER_PORT", EnvName("jobsensor", config.PropListenerPort))
	assert.Equal(t, "JOBSENSOR_EXECUTION_DELAY", EnvName(DefaultPrefix, config.PropExecutionDelay))
	assert.Equal(t, "JOBSENSOR_MAX_PENDING_CONNECTIONS", EnvName(DefaultPrefix, config.PropMaxPendingConnections))
	assert.Equal(t, "EXPIRATION", EnvName("", config.PropExpiration))
}

// Not parallel: t.Setenv forbids it.
func TestEnvLoader_Load(t *testing.T) {
	t.Setenv("SENSORTEST_LISTENER_PORT", "9100")
	t.Setenv("SENSORTEST_WORKER_COUNT", "3")

	props, err := New("SENSORTEST").Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, config.Properties{
		config.PropListenerPort: "9100",
		config.PropWorkerCount:  "3",
	}, props)
}

func TestEnvLoader_Layered(t *testing.T) {
	t.Setenv("SENSORTEST2_EXPIRATION", "5")

	props, err := config.NewMultiLoader(
		config.StaticLoader(config.Properties{config.PropListenerPort: "1", config.PropExpiration: "99"}),
		New("SENSORTEST2"),
	).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "5", props[config.PropExpiration])
	assert.Equal(t, "1", props[config.PropListenerPort])
}
