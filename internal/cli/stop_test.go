package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopCommand(t *testing.T) {
	t.Run("not running", func(t *testing.T) {
		path := writeConfig(t, nil)

		output, err := execute(t, "", "stop", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, output, "Daemon is not running")
	})

	t.Run("timeout flag", func(t *testing.T) {
		flag := stopCmd.Flags().Lookup("timeout")
		require.NotNil(t, flag)
		assert.Equal(t, "30", flag.DefValue)
	})
}

func TestStartCommandValidatesConfig(t *testing.T) {
	path := writeConfig(t, nil)

	_, err := execute(t, "", "start", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
