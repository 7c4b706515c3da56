package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainerNames(t *testing.T) {
	t.Run("finds docker start and stop targets", func(t *testing.T) {
		content := []byte(`[Service]
ExecStart=docker start etl-worker
ExecStop=docker stop etl-worker
KillSignal=SIGTERM
`)
		assert.Equal(t, []string{"etl-worker"}, ContainerNames(content))
	})

	t.Run("finds podman targets", func(t *testing.T) {
		content := []byte("ExecStart=podman start cache_warm\n")
		assert.Equal(t, []string{"cache_warm"}, ContainerNames(content))
	})

	t.Run("multiple distinct containers keep first-seen order", func(t *testing.T) {
		content := []byte(`ExecStart=docker start beta
ExecStop=docker stop alpha
`)
		assert.Equal(t, []string{"beta", "alpha"}, ContainerNames(content))
	})

	t.Run("no container commands", func(t *testing.T) {
		content := []byte("ExecStart=/usr/bin/export.sh\n")
		assert.Empty(t, ContainerNames(content))
	})
}
