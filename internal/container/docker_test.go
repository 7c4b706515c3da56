package container

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflows/taskflows/internal/testutil"
	"github.com/taskflows/taskflows/internal/testutil/fakerunner"
)

func TestDockerRemove(t *testing.T) {
	runner := fakerunner.New()
	engine := NewDocker(runner, testutil.NewTestLogger(t))

	require.NoError(t, engine.Remove(context.Background(), "web"))

	calls := runner.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "docker", calls[0].Name)
	assert.Equal(t, []string{"rm", "--force", "web"}, calls[0].Args)
}

func TestDockerRemoveMissingContainer(t *testing.T) {
	runner := fakerunner.New()
	runner.SetOutput("docker", []string{"rm", "--force", "gone"}, []byte("Error response from daemon: No such container: gone"))
	runner.SetError("docker", []string{"rm", "--force", "gone"}, fmt.Errorf("exit status 1"))
	engine := NewDocker(runner, testutil.NewTestLogger(t))

	assert.NoError(t, engine.Remove(context.Background(), "gone"))
}

func TestDockerRemoveFailure(t *testing.T) {
	runner := fakerunner.New()
	runner.SetOutput("docker", []string{"rm", "--force", "web"}, []byte("permission denied"))
	runner.SetError("docker", []string{"rm", "--force", "web"}, fmt.Errorf("exit status 1"))
	engine := NewDocker(runner, testutil.NewTestLogger(t))

	err := engine.Remove(context.Background(), "web")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
