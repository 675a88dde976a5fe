// File: cmd/cmd_test.go
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandFlags(t *testing.T) {
	runCmd := newRunCmd()

	for _, name := range []string{"max-actions", "headless", "rotate-vpn"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "expected flag %q", name)
	}
	assert.Equal(t, "run", runCmd.Use)
}

func TestRootCommandMetadata(t *testing.T) {
	require.Equal(t, "drifter-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Version)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}
